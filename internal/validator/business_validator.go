package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field failure.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// classCodePattern matches the generated join codes: 6 uppercase hex-derived
// characters.
var classCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func registerCustomRules(v *validator.Validate) {
	// Join codes are uppercased before lookup, so accept lowercase input here
	_ = v.RegisterValidation("class_code", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) == 6
	})
}

// BusinessValidator handles rules that cannot be expressed as struct tags.
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(v *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: v}
}

// Validate runs struct-tag validation and converts failures.
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ValidateSignUp adds the password-mismatch rule on top of tag validation.
func (bv *BusinessValidator) ValidateSignUp(req *SignUpRequest) ValidationErrors {
	errors := bv.Validate(req)

	if req.Password != req.PasswordConfirm {
		errors = append(errors, ValidationError{
			Field:   "password_confirm",
			Message: "passwords do not match",
			Rule:    "business_logic",
		})
	}

	return errors
}

// IsValidClassCode reports whether a stored code looks like a generated one.
func IsValidClassCode(code string) bool {
	return classCodePattern.MatchString(code)
}

func toValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	for _, fieldErr := range validationErrs {
		errors = append(errors, ValidationError{
			Field:   fieldErr.Field(),
			Message: messageForTag(fieldErr),
			Value:   fieldErr.Value(),
			Rule:    fieldErr.Tag(),
		})
	}

	return errors
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "alphanum":
		return "must contain only letters and digits"
	case "class_code":
		return "must be a 6-character class code"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
