package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		if name == "-" {
			return ""
		}

		if name == "" {
			return fld.Name
		}

		return name
	})

	return &Validator{validate: v}
}

// Validate checks struct tags and returns one ValidationError per failed field.
func (v *Validator) Validate(i any) ([]ValidationError, bool) {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return []ValidationError{{Code: "INVALID", Message: err.Error()}}, false
		}

		errs := make([]ValidationError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			errs = append(errs, ValidationError{
				Field:   fe.Field(),
				Code:    strings.ToUpper(fe.Tag()),
				Message: message(fe.Field(), fe.Tag(), fe.Param()),
			})
		}

		return errs, false
	}

	return nil, true
}

// Struct is Validate folded into a single error wrapping ErrValidation.
func (v *Validator) Struct(i any) error {
	errs, ok := v.Validate(i)
	if ok {
		return nil
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}

	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// Var validates a single value against a tag expression such as "required,url".
func (v *Validator) Var(field any, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must not exceed %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "url":
		return fmt.Sprintf("%s must be a valid url", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	}

	return fmt.Sprintf("%s failed on %s", field, tag)
}
