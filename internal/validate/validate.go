// Package validate wraps go-playground/validator for the configuration structs
// used across cloudseek. Config types declare their rules with `validate`
// struct tags and call Struct from their own Validate methods.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		// Report yaml field names so errors match what users write in config files.
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return instance
}

// FieldError describes one failed rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
	Value any
}

func (e FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", e.Field, e.Rule, e.Param, e.Value)
	}
	return fmt.Sprintf("%s: failed %s (got %v)", e.Field, e.Rule, e.Value)
}

// Errors collects every failed rule of one Struct call.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return convert(get().Struct(s))
}

// Field validates a single value against a tag expression such as
// "required,min=1".
func Field(value any, tag string) error {
	return convert(get().Var(value, tag))
}

// PositiveDuration reports an error naming the field when d <= 0.
func PositiveDuration(d time.Duration, name string) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}

func convert(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if field == "" {
			field = "value"
		}
		out = append(out, FieldError{
			Field: field,
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}
