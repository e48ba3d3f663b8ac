// Package logger provides structured logging for flowgen using zerolog.
//
// Loggers are component-scoped: every subsystem (scheduler, runner, guard,
// ledger, backends) asks the registry for its own tagged logger and attaches
// node and task identifiers as fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("scheduler")
//	log.Info("batch started", logger.Fields(logger.FieldBatchID, id, "nodes", len(order)))
package logger
