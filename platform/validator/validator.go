// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TagCorporateEmail rejects addresses hosted by consumer mail providers.
const TagCorporateEmail = "corporate_email"

// freeMailDomains are consumer providers a business lead should not use.
var freeMailDomains = map[string]struct{}{
	"gmail.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"yahoo.com":   {},
	"icloud.com":  {},
	"proton.me":   {},
	"aol.com":     {},
	"live.com":    {},
	"msn.com":     {},
}

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the custom tags registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation(TagCorporateEmail, corporateEmail)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// MissingRequired reports whether err flags an absent required field.
func MissingRequired(err error) bool {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return false
	}
	for _, fe := range fields {
		if fe.Tag() == "required" {
			return true
		}
	}
	return false
}

// IsFreeMail reports whether email belongs to a consumer mail provider.
func IsFreeMail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	_, ok := freeMailDomains[domain]
	return ok
}

func corporateEmail(fl validator.FieldLevel) bool {
	return !IsFreeMail(fl.Field().String())
}
