package httputil

import (
	"github.com/go-playground/validator/v10"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
)

var validate = validator.New()

// Validate validates a struct using go-playground/validator
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.BadRequest("invalid request")
		}
		details := make(map[string]string)

		for _, e := range validationErrors {
			details[e.Field()] = formatValidationError(e)
		}

		return errors.Validation(details)
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "datetime":
		return "must be a date in format " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "gtefield":
		return "must not be before " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "len":
		return "must be exactly " + e.Param() + " characters"
	default:
		return "invalid value"
	}
}
