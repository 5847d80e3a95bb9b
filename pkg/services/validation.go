package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fovea/waitlist/pkg/models"
)

const (
	msgEmailRequired = "Email is required"
	msgEmailInvalid  = "Please enter a complete email (e.g., .com, .net)"
	msgRoleRequired  = "Please select the option that best describes you"
	msgRoleTooLong   = "Role must be at most 64 characters"
	msgTooManyTools  = "Please select at most 20 tools"
	msgToolInvalid   = "Tool names must be 1-100 characters"
	msgFrequency     = "Please choose a valid AI usage frequency"
	msgInvalid       = "Invalid request"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("maildomain", validateMailDomain)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateMailDomain requires a dotted domain with an alphabetic TLD of at
// least two characters, which the plain email rule does not.
func validateMailDomain(fl validator.FieldLevel) bool {
	domain := emailDomain(fl.Field().String())
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return false
	}
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// validateSignup normalizes req in place and returns the first failing field.
func (s *signupServiceImpl) validateSignup(req *models.SignupRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)

	var err error
	if s.requireRole {
		err = s.validate.Struct(req)
	} else {
		err = s.validate.StructExcept(req, "Role")
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: msgInvalid}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	field := fe.StructField()
	element := strings.Contains(field, "[")
	if element {
		field = field[:strings.Index(field, "[")]
	}

	switch field {
	case "Email":
		if fe.Tag() == "required" {
			return msgEmailRequired
		}
		return msgEmailInvalid
	case "Role":
		if fe.Tag() == "required" {
			return msgRoleRequired
		}
		return msgRoleTooLong
	case "Tools":
		if element {
			return msgToolInvalid
		}
		return msgTooManyTools
	case "AIFrequency":
		return msgFrequency
	}
	return msgInvalid
}

// emailDomain returns the lower-cased part after the last '@'.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
