package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"mansara-store/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct reports the first failing field as a *domain.ValidationError
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError(fe.Field(), "failed on the '"+fe.Tag()+"' rule")
	}
	return domain.NewValidationError("body", err.Error())
}

var passthrough = []error{
	domain.ErrAuthRequired,
	domain.ErrForbidden,
	domain.ErrInvalidReference,
	domain.ErrInvalidQuantity,
	domain.ErrEmptyCart,
	domain.ErrInvalidTransition,
	domain.ErrNotFound,
	domain.ErrValidation,
	domain.ErrConflict,
}

// storeErr leaves classified errors alone and wraps everything else as a
// *domain.PersistenceError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
