package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/biter777/countries"
	"github.com/go-playground/validator/v10"
)

// FieldError names one violated rule of one field, using the field's json name.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error carries every violation found in a single pass.
type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	message := ""
	for _, f := range e.Fields {
		if len(message) > 0 {
			message += "; "
		}
		message += fmt.Sprintf("%s %s", f.Field, f.Rule)
	}
	return "validation failed: " + message
}

// Has reports whether the field is among the violations.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = instance.RegisterValidation("alphaspace", alphaSpace)
		_ = instance.RegisterValidation("country", country)
	})
	return instance
}

// Struct validates a single struct object; violations are returned as *Error
func Struct(s interface{}) error {
	if s == nil {
		return fmt.Errorf("is nil")
	}
	if !isStruct(s) {
		return fmt.Errorf("not a struct")
	}
	var validationErrors validator.ValidationErrors
	var invalidValidationError *validator.InvalidValidationError

	err := get().Struct(s)
	if err == nil {
		return nil
	}

	if errors.As(err, &validationErrors) {
		result := &Error{}
		for _, fieldErr := range validationErrors {
			result.Fields = append(result.Fields, FieldError{
				Field: fieldErr.Field(),
				Rule:  fieldErr.Tag(),
			})
		}
		return result
	} else if errors.As(err, &invalidValidationError) {
		return fmt.Errorf("invalid validation error: %w", err)
	} else {
		return fmt.Errorf("unknown validation error: %w", err)
	}
}

func isStruct(s interface{}) bool {
	r := reflect.TypeOf(s)
	if r.Kind() == reflect.Ptr {
		r = r.Elem()
	}
	return r.Kind() == reflect.Struct
}

// alphaSpace accepts letters of any script separated by single spaces
func alphaSpace(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if strings.TrimSpace(value) == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// country accepts a country name or an ISO alpha-2/alpha-3 code
func country(fl validator.FieldLevel) bool {
	return countries.ByName(fl.Field().String()) != countries.Unknown
}
