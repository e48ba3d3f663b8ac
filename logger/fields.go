package logger

// Standard field keys for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"

	FieldNodeID   = "node_id"
	FieldNodeType = "node_type"
	FieldModel    = "model"
	FieldTaskID   = "task_id"
	FieldBatchID  = "batch_id"
	FieldPass     = "pass"
	FieldBackend  = "backend"
)

// Fields builds a field map from alternating key-value pairs.
//
//	log.Info("node finished", logger.Fields(logger.FieldNodeID, id, "artifacts", n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// NodeFields tags a log line with the node it concerns.
func NodeFields(nodeID, nodeType string) map[string]interface{} {
	return map[string]interface{}{
		FieldNodeID:   nodeID,
		FieldNodeType: nodeType,
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields[FieldError] = err.Error()
	}
	return fields
}
