// Package config loads flowgen configuration from a YAML file, an optional
// .env file and the process environment.
//
// Values resolve in this order, later sources winning: defaults registered
// by the caller, config.yml, then environment variables. Environment keys
// use the FLOWGEN_ prefix with underscores for nesting, so
// FLOWGEN_SCHEDULER_RUN_TIMEOUT overrides scheduler.run_timeout.
//
//	var cfg app.Config
//	if err := config.LoadConfig("flowgen", &cfg); err != nil {
//	    return err
//	}
package config
