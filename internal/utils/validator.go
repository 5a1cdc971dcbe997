// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/licensing-portal/internal/models"
)

var validate *validator.Validate

var nationalIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,64}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("role", validateRole)
	validate.RegisterValidation("national_id", validateNationalID)
	validate.RegisterValidation("action_name", validateActionName)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validateNationalID(fl validator.FieldLevel) bool {
	return nationalIDPattern.MatchString(fl.Field().String())
}

// Action names are upper snake case, e.g. START_REVIEW.
func validateActionName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || strings.ToUpper(name) != name {
		return false
	}
	for _, r := range name {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   toSnakeCase(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "uuid", "uuid4":
		return e.Field() + " must be a valid UUID"
	case "role":
		return "Role must be one of dealer, officer, oversight"
	case "national_id":
		return "National ID must be 4-64 letters, digits or dashes"
	case "action_name":
		return "Action must be an upper-case action name such as START_REVIEW"
	default:
		return e.Field() + " is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
