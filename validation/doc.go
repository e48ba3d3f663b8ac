// Package validation checks API payloads and node settings.
//
// Struct checks use go-playground/validator tags and report field names by
// their json tag. The fluent Validator covers ad-hoc checks such as path
// parameters:
//
//	if err := validation.New().RequiredUUID("task_id", id).Validate(); err != nil {
//	    return err
//	}
package validation
