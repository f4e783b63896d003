// Package validation checks decoded API payloads against their validate tags
// with a single shared validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mikey/phishguard/internal/scoring"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// risklevel accepts Low, Medium or High in any case
	if err := v.RegisterValidation("risklevel", func(fl validator.FieldLevel) bool {
		_, ok := scoring.ParseRiskLevel(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}

	return v
}

// Struct validates a struct against its validate tags
func Struct(s interface{}) error {
	return validate.Struct(s)
}

// IsValidationError reports whether err came from a failed validation
func IsValidationError(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}

// Describe turns a validation error into a single readable message
func Describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldPath(fe), message(fe)))
	}
	return strings.Join(msgs, "; ")
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "risklevel":
		return "must be one of Low, Medium, High"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
