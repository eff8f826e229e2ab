package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/flowtls/syncplus/pkg/util"
)

var validate = validator.New()

// validateStruct runs tag validation and folds failures into one
// VALIDATION_FAILED error with per-field detail.
func validateStruct(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	details := map[string]any{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return apperrors.NewValidationError("invalid payload", details)
}
