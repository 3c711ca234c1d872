package validator

import (
	"errors"
	"fmt"
	"staymate/pkg/logger"
	"staymate/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type KeyValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewKeyValidator(log *logger.Logger) *KeyValidator {
	v := validator.New()

	if err := v.RegisterValidation("venue_id", validateVenueID); err != nil {
		log.Fatal("Failed to register 'venue_id' validator", "error", err)
	}
	if err := v.RegisterValidation("user_id", validateUserID); err != nil {
		log.Fatal("Failed to register 'user_id' validator", "error", err)
	}

	return &KeyValidator{
		validate: v,
		logger:   log,
	}
}

// venue ids end up inside channel ids, so the channel separators are banned.
func validateVenueID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, ":| \t\n")
}

func validateUserID(fl validator.FieldLevel) bool {
	return model.ValidUserID(fl.Field().String())
}

func (v *KeyValidator) ValidateConfirmation(conf *model.BookingConfirmation) error {
	if err := v.validate.Struct(conf); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *KeyValidator) ValidateProfile(user *model.User) error {
	if err := v.validate.Struct(user); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *KeyValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "venue_id":
			message = fmt.Sprintf("%s must not contain ':', '|' or whitespace", err.Field())
		case "user_id":
			message = fmt.Sprintf("%s is not a valid user id", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
