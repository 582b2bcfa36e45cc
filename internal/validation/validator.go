package validation

import (
	"fmt"
	"net/mail"
	"reflect"
	"strconv"
	"strings"
)

// Validator validates structs by their `validate` tags. Supported rules:
// required, email, min=N, max=N, oneof=a b c.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct or pointer to struct.
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" || tag == "-" {
			continue
		}

		name := jsonName(fieldType)
		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

func (v *Validator) validateField(field reflect.Value, tag string) error {
	// Optional pointer fields: nil passes unless required; rules apply
	// to the pointee otherwise.
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			if strings.Contains(tag, "required") {
				return fmt.Errorf("field is required")
			}
			return nil
		}
		field = field.Elem()
	}

	for _, rule := range strings.Split(tag, ",") {
		parts := strings.SplitN(rule, "=", 2)
		name := parts[0]
		arg := ""
		if len(parts) == 2 {
			arg = parts[1]
		}

		var err error
		switch name {
		case "required":
			if field.IsZero() {
				err = fmt.Errorf("field is required")
			}
		case "email":
			err = checkEmail(field)
		case "min":
			err = checkMin(field, arg)
		case "max":
			err = checkMax(field, arg)
		case "oneof":
			err = checkOneOf(field, arg)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func checkEmail(field reflect.Value) error {
	if field.Kind() != reflect.String {
		return nil
	}
	s := field.String()
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

func checkMin(field reflect.Value, arg string) error {
	switch field.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("bad min rule %q", arg)
		}
		if field.Len() > 0 && field.Len() < n {
			return fmt.Errorf("minimum length is %d", n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad min rule %q", arg)
		}
		if field.Int() < n {
			return fmt.Errorf("minimum value is %d", n)
		}
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("bad min rule %q", arg)
		}
		if field.Float() < f {
			return fmt.Errorf("minimum value is %g", f)
		}
	}
	return nil
}

func checkMax(field reflect.Value, arg string) error {
	switch field.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("bad max rule %q", arg)
		}
		if field.Len() > n {
			return fmt.Errorf("maximum length is %d", n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad max rule %q", arg)
		}
		if field.Int() > n {
			return fmt.Errorf("maximum value is %d", n)
		}
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("bad max rule %q", arg)
		}
		if field.Float() > f {
			return fmt.Errorf("maximum value is %g", f)
		}
	}
	return nil
}

func checkOneOf(field reflect.Value, arg string) error {
	if field.Kind() != reflect.String {
		return nil
	}
	s := field.String()
	if s == "" {
		return nil
	}
	allowed := strings.Fields(arg)
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
}
