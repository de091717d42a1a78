package users

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// NewValidator returns a validator with the "password" and "qtype" rules.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordOK(fl.Field().String())
	})
	_ = v.RegisterValidation("qtype", func(fl validator.FieldLevel) bool {
		return grading.Type(fl.Field().String()).Valid()
	})
	// Report json names in messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// passwordOK: 8-128 characters with at least one digit, one upper and one
// lower case letter.
func passwordOK(p string) bool {
	n := len([]rune(p))
	if n < 8 || n > 128 {
		return false
	}
	var digit, upper, lower bool
	for _, r := range p {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return digit && upper && lower
}

// Describe turns validator errors into one client-facing sentence.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
	case "password":
		return f + " must be 8-128 characters with a digit, an upper and a lower case letter"
	case "qtype":
		return f + " must be one of: single, multiple, text"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", f, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", f, fe.Param())
	}
	return f + " is invalid"
}
