package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate reports the first invalid field as a validation error. The
// method is filled in by HandleError.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fieldErr := fieldErrs[0]
		return entities.NewValidationError("", fieldErr.Field(), fieldErr.Value(), describe(fieldErr)).WithCause(err)
	}

	return entities.NewValidationError("", "body", nil, "invalid request body").WithCause(err)
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "can not be null or empty"
	case "gt", "gte":
		return fmt.Sprintf("must be greater than %s", orEqual(fieldErr.Tag(), fieldErr.Param()))
	default:
		return fmt.Sprintf("failed on the %s rule", fieldErr.Tag())
	}
}

func orEqual(tag, param string) string {
	if tag == "gte" {
		return "or equal to " + param
	}
	return param
}
