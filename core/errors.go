package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned when client input is rejected.
// The HTTP layer renders Fields as a {field: message} map, or Err as a plain message.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldValidationError is a shortcut for a ValidationError scoped to a single field.
func NewFieldValidationError(field string, err error) error {
	return &ValidationError{Err: err, Fields: []FieldError{{Field: field, Error: err.Error()}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// Unwrap exposes Err to errors.Is & errors.As.
func (err *ValidationError) Unwrap() error {
	return err.Err
}

// AsValidationError walks the errors.Wrap chain of `err` looking for a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	for err != nil {
		if vErr, ok := err.(*ValidationError); ok {
			return vErr, true
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			return nil, false
		}
		err = cause.Cause()
	}
	return nil, false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// Logger is implemented by the app's loggers.
// args may contain an error, a map[string]interface{} of extras, or the record the log is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
