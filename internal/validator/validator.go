package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator bundles struct validation and business rules.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered.
func New() *Validator {
	v := validator.New()
	registerCustomRules(v)

	// Report field errors under their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{
		validate: v,
		business: newBusinessValidator(v),
	}
}

// Struct validates the tags on any request struct.
func (v *Validator) Struct(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator returns the business-rule validator.
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
