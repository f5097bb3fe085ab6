// Package validate checks the user-editable fields of a contact. The same rules apply to the
// HTML forms and to the JSON API. CSV imports only check for the presence of the required
// fields and do not use this package.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
)

// Code classifies why a field was rejected.
type Code string

const (
	Required      Code = "Required"
	TooShort      Code = "TooShort"
	TooLong       Code = "TooLong"
	NoDigits      Code = "NoDigits"
	InvalidFormat Code = "InvalidFormat"
)

// FieldError describes a single rejected field.
type FieldError struct {
	Field   string
	Code    Code
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors maps field names to the first rule the field violated.
type Errors map[string]FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, name := range e.fieldNames() {
		msgs = append(msgs, e[name].Error())
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the human-readable message per field name.
func (e Errors) Messages() map[string]string {
	m := make(map[string]string, len(e))
	for name, fe := range e {
		m[name] = fe.Message
	}
	return m
}

// List returns the errors in form order: full name, phone number, email.
func (e Errors) List() []FieldError {
	list := make([]FieldError, 0, len(e))
	for _, name := range e.fieldNames() {
		list = append(list, e[name])
	}
	return list
}

var fieldOrder = map[string]int{
	model.FieldFullName:    0,
	model.FieldPhoneNumber: 1,
	model.FieldEmail:       2,
}

func (e Errors) fieldNames() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return fieldOrder[names[i]] < fieldOrder[names[j]]
	})
	return names
}

// rules carries the validation tags. Tags of one field are evaluated left to right and the
// first failing tag is reported, so length checks precede the digit check.
type rules struct {
	FullName    string `field:"full_name"    validate:"required,min=2,max=100"`
	PhoneNumber string `field:"phone_number" validate:"required,min=10,max=20,containsany=0123456789"`
	Email       string `field:"email"        validate:"required,email"`
}

var codes = map[string]Code{
	"required":    Required,
	"min":         TooShort,
	"max":         TooLong,
	"containsany": NoDigits,
	"email":       InvalidFormat,
}

var messages = map[string]map[Code]string{
	model.FieldFullName: {
		Required: "Full name is required.",
		TooShort: "Full name must be at least 2 characters.",
		TooLong:  "Full name must not exceed 100 characters.",
	},
	model.FieldPhoneNumber: {
		Required: "Phone number is required.",
		TooShort: "Phone number must be at least 10 digits.",
		TooLong:  "Phone number must not exceed 20 characters.",
		NoDigits: "Phone number must contain digits.",
	},
	model.FieldEmail: {
		Required:      "Email is required.",
		InvalidFormat: "Invalid email format.",
	},
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	return val
}

// Contact validates the fields of a contact. It returns the cleaned fields (trimmed, email in
// lower case) and nil, or the cleaned fields and the errors of every rejected field.
// Contact has no side effects; validating its own output again never reports an error.
func Contact(f model.Fields) (model.Fields, Errors) {
	cleaned := f.Clean()
	err := v.Struct(rules{
		FullName:    cleaned.FullName,
		PhoneNumber: cleaned.PhoneNumber,
		Email:       cleaned.Email,
	})
	if err == nil {
		return cleaned, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only returned for programming errors such as passing a nil struct.
		panic(err)
	}
	errs := make(Errors, len(verrs))
	for _, fe := range verrs {
		code, ok := codes[fe.Tag()]
		if !ok {
			code = InvalidFormat
		}
		errs[fe.Field()] = FieldError{
			Field:   fe.Field(),
			Code:    code,
			Message: messages[fe.Field()][code],
		}
	}
	return cleaned, errs
}
