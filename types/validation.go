package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports the first field constraint a record violated.
// Its message is safe to return to API clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schemaValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			if label := field.Tag.Get("label"); label != "" {
				return label
			}
			return strings.ToLower(field.Name)
		})
		_ = v.RegisterValidation("email_pattern", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
			return IsGenre(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func validateStruct(value any) error {
	err := schemaValidator().Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fieldLabel(fe), Message: describe(fe)}
}

// fieldLabel drops the index suffix validator adds to slice elements.
func fieldLabel(fe validator.FieldError) string {
	label := fe.Field()
	if i := strings.IndexByte(label, '['); i >= 0 {
		label = label[:i]
	}
	return label
}

func describe(fe validator.FieldError) string {
	label := fieldLabel(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please provide %s %s", article(label), label)
	case "email_pattern":
		return "Please provide a valid email"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot be more than %s characters", capitalize(label), fe.Param())
		}
		return fmt.Sprintf("%s cannot be more than %s", capitalize(label), fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", capitalize(label), fe.Param())
		}
		if fe.Param() == "0" {
			return fmt.Sprintf("%s cannot be negative", capitalize(label))
		}
		return fmt.Sprintf("%s must be at least %s", capitalize(label), fe.Param())
	case "oneof", "genre":
		return fmt.Sprintf("%v is not a valid %s", fe.Value(), label)
	default:
		return fmt.Sprintf("%s is invalid", capitalize(label))
	}
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
