// Package services holds the POS business rules. Every operation takes the
// resolved caller and enforces branch ownership itself.
package services

import (
	"reflect"
	"strings"

	"bakaaro-pos/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report field names as the client sends them
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks in against its validate tags and reports the first
// failure as InvalidInput.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.InvalidInput("Invalid input")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.InvalidInput("%s is required", fe.Field())
	case "gte":
		return apperr.InvalidInput("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "min":
		return apperr.InvalidInput("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return apperr.InvalidInput("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return apperr.InvalidInput("%s is invalid", fe.Field())
	}
}

// hashError passes input errors from the hasher through.
func hashError(err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(err, "Server error")
}

// dbError wraps a persistence failure for the client.
func dbError(err error) error {
	return apperr.Internal(err, "Server error")
}
