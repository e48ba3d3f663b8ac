package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/flowgen/errors"
)

// Validator collects field errors.
type Validator struct {
	errors []FieldError
}

// FieldError is a validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any error was recorded.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the recorded errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns nil, or an AppError listing every field error.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	return toAppError(v.errors)
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// RequiredUUID checks that value parses as a non-nil UUID.
func (v *Validator) RequiredUUID(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
		return v
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		v.AddError(field, "must be a valid UUID")
		return v
	}
	if parsed == uuid.Nil {
		v.AddError(field, "must not be the nil UUID")
	}
	return v
}

// Min checks that value is at least minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// NotEmpty checks that a slice has at least one element.
func (v *Validator) NotEmpty(field string, n int) *Validator {
	if n == 0 {
		v.AddError(field, "must not be empty")
	}
	return v
}

// OneOf checks that a non-empty value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom records message when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

func toAppError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = e.Field + ": " + e.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}
