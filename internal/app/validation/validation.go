// Package validation checks request and service inputs against their
// validate tags and reports failures as 400 errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sifan077/spectra/internal/app/apperror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field names in messages follow the JSON names clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates s. The first failing field becomes an apperror.Invalid.
func Struct(s any) error {
	return translate(validate.Struct(s))
}

// Var validates a single value named field against tag.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.Invalid(message(field, verrs[0])).WithCause(err)
	}
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.Invalid(message(verrs[0].Field(), verrs[0])).WithCause(err)
	}
	return err
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email"
	case "url":
		return fmt.Sprintf("%s must be an absolute URL", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("Invalid %s", field)
}
