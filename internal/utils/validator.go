package utils

import (
	"errors"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Validator bundles struct validation with input sanitation. A single
// instance is shared across the application.
type Validator struct {
	Validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

var (
	instance *Validator
	once     sync.Once
)

func GetValidator() *Validator {
	once.Do(func() {
		instance = &Validator{
			Validate:  validator.New(validator.WithRequiredStructEnabled()),
			sanitizer: bluemonday.StrictPolicy(),
		}
	})

	return instance
}

// SanitizeData strips any markup from the string fields of the given struct
// pointer in place. Non-struct values are rejected.
func (v *Validator) SanitizeData(obj interface{}) error {
	value := reflect.ValueOf(obj)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return errors.New("expected a pointer to a struct")
	}

	value = value.Elem()
	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)

		switch {
		case field.Kind() == reflect.String && field.CanSet():
			field.SetString(v.sanitizer.Sanitize(field.String()))
		case field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.String && field.Elem().CanSet():
			field.Elem().SetString(v.sanitizer.Sanitize(field.Elem().String()))
		}
	}

	return nil
}
