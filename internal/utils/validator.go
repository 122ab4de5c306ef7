// internal/utils/validator.go
package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("license_type", validateLicenseType)
	validate.RegisterValidation("dispute_type", validateDisputeType)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

var licenseTypes = map[string]bool{
	"film_rights":          true,
	"tv_rights":            true,
	"game_rights":          true,
	"audio_rights":         true,
	"translation_rights":   true,
	"merchandising_rights": true,
}

func validateLicenseType(fl validator.FieldLevel) bool {
	return licenseTypes[fl.Field().String()]
}

var disputeTypes = map[string]bool{
	"payment_dispute":     true,
	"contract_breach":     true,
	"rights_infringement": true,
	"milestone_delay":     true,
	"other":               true,
}

func validateDisputeType(fl validator.FieldLevel) bool {
	return disputeTypes[fl.Field().String()]
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
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
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "license_type":
		return "Unknown license type"
	case "dispute_type":
		return "Unknown dispute type"
	default:
		return e.Field() + " is invalid"
	}
}
