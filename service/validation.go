package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var ErrValidation = errors.New("validation failed")

// ValidationError reports the first problem with a submitted form. Fields maps every failing
// field to its message.
type ValidationError struct {
	Field   string
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Fields: map[string]string{field: message}}
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = message
	if e.Message == "" {
		e.Field = field
		e.Message = message
	}
}

// fieldMessages maps a struct field to the message shown when any of its rules fail.
type fieldMessages map[string]string

func validateStruct(v *validator.Validate, form interface{}, msgs fieldMessages) *ValidationError {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newValidationError("", err.Error())
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := msgs[fe.Field()]
		if !ok {
			msg = fe.Error()
		}
		out.add(fe.Field(), msg)
	}
	return out
}
