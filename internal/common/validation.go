package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a rejected user input value
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

// Validator collects input validation failures for command arguments and flags.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns the combined failures wrapped as ErrInvalidInput, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return NewAppError("INVALID_ARGUMENT", strings.Join(messages, "; "), ErrInvalidInput)
}

// Required rejects nil and blank strings.
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// MinLength rejects strings shorter than min runes. Non-strings pass.
func MinLength(min int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		if utf8.RuneCountInString(s) < min {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be at least %d characters", min)}
		}
		return nil
	}
}

// Matches rejects non-empty strings that do not match re.
func Matches(re *regexp.Regexp, hint string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		if !re.MatchString(s) {
			return &ValidationError{Field: fieldName, Value: value, Message: hint}
		}
		return nil
	}
}

// Between rejects float64 or int values outside [lo, hi].
func Between(lo, hi float64) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		var f float64
		switch t := value.(type) {
		case float64:
			f = t
		case int:
			f = float64(t)
		default:
			return nil
		}
		if f < lo || f > hi {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be between %g and %g", lo, hi)}
		}
		return nil
	}
}
