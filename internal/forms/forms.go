// Package forms parses and validates the signup, login and appointment forms.
// Constraints are declared as validator struct tags; failures are reported
// per form field so templates can show them next to the input.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// Errors maps a form field name to its message
type Errors map[string]string

// Add records msg for field, keeping the first message reported
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Get returns the message for field, or ""
func (e Errors) Get(field string) string {
	return e[field]
}

// Any reports whether at least one error was recorded
func (e Errors) Any() bool {
	return len(e) > 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
	// max counts runes; bcrypt limits bytes
	mustRegister(v, "maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("forms: bad maxbytes parameter %q", fl.Param()))
		}
		return len(fl.Field().String()) <= n
	})
	mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			// reported by the datetime tag
			return true
		}
		return !d.After(time.Now())
	})
	mustRegister(v, "notpast", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return true
		}
		today, _ := time.Parse(dateLayout, time.Now().Format(dateLayout))
		return !d.Before(today)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("forms: register %s: %v", tag, err))
	}
}

// Validate checks the struct tags of form and returns the failures keyed by form field
func Validate(form any) Errors {
	errs := Errors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("form", "The form could not be processed.")
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "len":
		return fmt.Sprintf("Field must be exactly %s characters long.", fe.Param())
	case "eqfield":
		return "Field must be equal to password."
	case "digits":
		return "Field must contain digits only."
	case "oneof":
		return "Not a valid choice."
	case "datetime":
		return "Not a valid date (YYYY-MM-DD)."
	case "maxbytes":
		return fmt.Sprintf("Field cannot be longer than %s bytes.", fe.Param())
	case "notfuture":
		return "Date cannot be in the future."
	case "notpast":
		return "Date cannot be in the past."
	}
	return "Invalid value."
}

func value(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func checked(r *http.Request, key string) bool {
	switch strings.ToLower(r.PostFormValue(key)) {
	case "y", "on", "true", "1":
		return true
	}
	return false
}
