package validator

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
)

// MinPhoneLength includes the leading '+'.
const MinPhoneLength = 7

// CustomValidator wraps the validator instance for Echo.
type CustomValidator struct {
	validator  *validator.Validate
	translator ut.Translator
}

func New() *CustomValidator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			tag := field.Tag.Get(key)
			if tag == "" {
				continue
			}
			name := strings.SplitN(tag, ",", 2)[0]
			if name != "-" && name != "" {
				return name
			}
		}
		return field.Name
	})

	if err := validate.RegisterValidation("phone", validatePhone); err != nil {
		panic("failed to register phone validation: " + err.Error())
	}

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic("failed to register validator default translations: " + err.Error())
	}

	registerPhoneTranslation(validate, trans)

	return &CustomValidator{
		validator:  validate,
		translator: trans,
	}
}

// validatePhone accepts international numbers: a leading '+' and at least
// MinPhoneLength characters.
func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.TrimSpace(fl.Field().String())
	return strings.HasPrefix(phone, "+") && len(phone) >= MinPhoneLength
}

func registerPhoneTranslation(validate *validator.Validate, trans ut.Translator) {
	_ = validate.RegisterTranslation(
		"phone",
		trans,
		func(ut ut.Translator) error {
			return ut.Add("phone", "{0} must start with + and have at least 7 characters", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("phone", fe.Field())
			return t
		},
	)
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{
				Errors: cv.translateErrors(validationErrors),
			}
		}
		return err
	}
	return nil
}

func (cv *CustomValidator) translateErrors(errs validator.ValidationErrors) map[string]string {
	errors := make(map[string]string)
	for _, err := range errs {
		errors[err.Field()] = err.Translate(cv.translator)
	}
	return errors
}

type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	var messages []string
	for field, msg := range e.Errors {
		messages = append(messages, field+": "+msg)
	}
	return strings.Join(messages, "; ")
}

type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func HandleValidationError(c echo.Context, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Success: false,
			Error:   "Validation failed",
			Details: ve.Errors,
		})
	}
	return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Success: false,
		Error:   err.Error(),
	})
}
