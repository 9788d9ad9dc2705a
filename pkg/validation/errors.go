package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError maps request fields to a readable message.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error lists the field messages in field order.
func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.Errors[field])
	}
	return strings.Join(parts, "; ")
}

// NewValidationError converts validator errors, keyed by json field name.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	v := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		v.AddError(fe.Field(), fieldMessage(fe))
	}
	return v
}

// tagMessages are the formats for tags without a parameter.
var tagMessages = map[string]string{
	"required":      "%s is required",
	"email":         "%s must be a valid email address",
	"record_id":     "%s must be a positive integer or UUID",
	"ip_or_unknown": "%s must be a valid IPv4 or IPv6 address or \"unknown\"",
	"ip":            "%s must be a valid IP address",
	"uuid":          "%s must be a valid UUID",
	"url":           "%s must be a valid URL",
	"numeric":       "%s must be numeric",
}

// paramMessages are the formats for tags carrying a parameter.
var paramMessages = map[string]string{
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"oneof": "%s must be one of: %s",
}

func fieldMessage(fe validator.FieldError) string {
	if format, ok := tagMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Field())
	}
	if format, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// AddError records message for field, replacing any earlier one.
func (v *ValidationError) AddError(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string]string)
	}
	v.Errors[field] = message
}

// HasErrors reports whether any field failed.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// GetFieldError returns the message recorded for field.
func (v *ValidationError) GetFieldError(field string) (string, bool) {
	msg, ok := v.Errors[field]
	return msg, ok
}
