package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match the API payloads.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = Validate.RegisterValidation("amenity", func(fl validator.FieldLevel) bool {
		return models.Amenity(fl.Field().String()).Valid()
	})
}

// ValidationMessage turns the first validator failure into a client-facing message.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "amenity":
		return fmt.Sprintf("%s is not a known amenity", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
