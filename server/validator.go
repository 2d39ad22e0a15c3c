package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tech-arch1tect/authstarter/services/otp"
)

// FieldError is a request validation failure on a single JSON field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return otp.IsWellFormedCode(fl.Field().String())
	})
	_ = v.RegisterValidation("otppurpose", func(fl validator.FieldLevel) bool {
		_, err := otp.ParsePurpose(fl.Field().String())
		return err == nil
	})

	return &Validator{validate: v}
}

// Validate reports the first failing field as a *FieldError.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	return &FieldError{Field: fe.Field(), Message: fieldMessage(fe)}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "otpcode":
		return fe.Field() + " must be a 6-digit code"
	case "otppurpose":
		return fe.Field() + " must be one of: sign-up, sign-in, email-verification"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}
