// Package validator wraps go-playground/validator with compliance-specific rules.
package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// ValidateStructured returns a map of field -> error message for API responses.
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "tier":
					msg = "Must be one of: none, basic, advanced, enhanced"
				case "currency3":
					msg = "Must be a 3-letter ISO currency code"
				case "amount":
					msg = "Must be a positive decimal amount"
				case "country2":
					msg = "Must be a 2-letter ISO country code"
				}
				errs[e.Field()] = msg
			}
		}
	}
	return errs
}

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
)

func (v *Validator) registerCustomValidations() {
	// Report failures under the wire name, not the Go field name.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimal fields validate as their string form.
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	// tier: canonical verification tier name
	_ = v.validate.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "none", "basic", "advanced", "enhanced":
			return true
		}
		return false
	})

	// currency3: uppercase 3-letter currency code
	_ = v.validate.RegisterValidation("currency3", func(fl validator.FieldLevel) bool {
		return currencyPattern.MatchString(fl.Field().String())
	})

	// country2: uppercase 2-letter country code
	_ = v.validate.RegisterValidation("country2", func(fl validator.FieldLevel) bool {
		return countryPattern.MatchString(fl.Field().String())
	})

	// amount: positive decimal string
	_ = v.validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return d.IsPositive()
	})
}
