package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks `validate` struct tags. gin's own binding tags are not
// used on the payload so that failures can be reported per field.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// enum accepts any value with a Valid method, such as EventType.
	if err := v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && e.Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// CheckField validates a single value against tag and records msg under
// field when it fails.
func CheckField(v *ValidationError, field string, value any, tag, msg string) bool {
	if err := validate.Var(value, tag); err != nil {
		v.Add(field, msg)
		return false
	}
	return true
}

// addStructErrors records the failures of validate.Struct. Errors inside a
// list are reported against the element, e.g. "attendees[0]".
func addStructErrors(v *ValidationError, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if err != nil {
			v.Add("payload", err.Error())
		}
		return
	}
	for _, fe := range fieldErrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if i := strings.Index(field, "]"); i >= 0 {
			field = field[:i+1]
		}
		v.Add(field, fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		return fmt.Sprintf("title must be between %d and %d characters", TitleMinLen, TitleMaxLen)
	case "tz":
		return "tz is not a known time zone"
	case "minutes_before":
		return fmt.Sprintf("minutes_before must be between 0 and %d", MaxReminderMinutes)
	case "method":
		return "invalid reminder method"
	case "user_id":
		return "each attendee must have user_id or email"
	case "email":
		return fmt.Sprintf("%q is not a valid email address", fe.Value())
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "enum":
		return fe.Field() + " is invalid"
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
