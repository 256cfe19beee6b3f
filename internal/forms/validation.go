// Package forms validates admin input against model rules.
package forms

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NonFieldErrors keys errors that do not belong to a single field
const NonFieldErrors = "__all__"

// ValidationError collects messages per field
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

// NewValidationError returns an error with a single message
func NewValidationError(field, message string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, message)
	return e
}

// Add appends a message for field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Merge copies every message of other into e
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, messages := range other.Fields {
		for _, m := range messages {
			e.Add(field, m)
		}
	}
}

// HasErrors reports whether any message was recorded
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Cleaner is implemented by models with cross-field rules
type Cleaner interface {
	Clean() error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Var validates a single value against a validator tag
func Var(value interface{}, tag string) error {
	return validate.Var(value, tag)
}

// CleanModel runs field validation and the model's Clean method, returning
// nil when the model is valid. Errors are keyed by JSON field name.
func CleanModel(model interface{}) *ValidationError {
	result := &ValidationError{}

	if err := validate.Struct(model); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				result.Add(fe.Field(), message(fe))
			}
		} else {
			result.Add(NonFieldErrors, err.Error())
		}
	}

	if c, ok := model.(Cleaner); ok {
		if err := c.Clean(); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				result.Merge(ve)
			} else {
				result.Add(NonFieldErrors, err.Error())
			}
		}
	}

	if !result.HasErrors() {
		return nil
	}
	return result
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "url", "http_url":
		return "Enter a valid URL."
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	}
	return "Enter a valid value."
}
