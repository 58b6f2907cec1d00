package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"storefront/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var (
	digits10Re    = regexp.MustCompile(`^\d{10}$`)
	pincodeRe     = regexp.MustCompile(`^\d{6}$`)
	expiryRe      = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	upiRe         = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z]+$`)
	displayNameRe = regexp.MustCompile(`^[a-zA-Z\s]{2,50}$`)
	emailRe       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// RegisterValidations installs the storefront's custom tags on v
func RegisterValidations(v *validator.Validate) error {
	tags := map[string]*regexp.Regexp{
		"phone10":     digits10Re,
		"pincode":     pincodeRe,
		"expiry":      expiryRe,
		"upi":         upiRe,
		"displayname": displayNameRe,
	}
	for tag, re := range tags {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			return fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		if err := RegisterValidations(validate); err != nil {
			panic(err)
		}
	})
	return validate
}

var fieldMessages = map[string]string{
	"phone10": "must be exactly 10 digits",
	"pincode": "must be exactly 6 digits",
	"expiry":  "must be in MM/YY format",
	"upi":     "must look like username@provider",
}

// validateStruct runs struct tags and reports the first failure as a validation error
func validateStruct(v interface{}) error {
	return AsValidationError(getValidator().Struct(v))
}

// AsValidationError turns a tag validation or decoding failure into a user-safe validation error
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return apperr.ValidationError(describeFieldError(verrs[0]))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return fmt.Sprintf("%s %s", field, msg)
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "max", "len":
		return fmt.Sprintf("%s has an invalid length", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}
