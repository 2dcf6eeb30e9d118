package entities

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindDownstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDownstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// Error is the payload every failed ticket, seat or event operation surfaces to
// its caller. Err keeps the underlying cause for logs and errors.Is checks.
type Error struct {
	Kind        ErrorKind `json:"-"`
	Method      string    `json:"method"`
	Field       string    `json:"field"`
	Value       any       `json:"value"`
	Description string    `json:"description"`
	Err         error     `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (method=%s, field=%s, value=%v): %s", e.Kind, e.Method, e.Field, e.Value, e.Description)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func NewValidationError(method, field string, value any, description string) *Error {
	return &Error{Kind: KindValidation, Method: method, Field: field, Value: value, Description: description}
}

func NewNotFoundError(method, field string, value any, description string) *Error {
	return &Error{Kind: KindNotFound, Method: method, Field: field, Value: value, Description: description}
}

func NewConflictError(method, field string, value any, description string) *Error {
	return &Error{Kind: KindConflict, Method: method, Field: field, Value: value, Description: description}
}

func NewDownstreamError(method, field string, value any, description string, cause error) *Error {
	return &Error{Kind: KindDownstream, Method: method, Field: field, Value: value, Description: description, Err: cause}
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) ErrorKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// ParseErrorKind is the inverse of ErrorKind.String.
func ParseErrorKind(s string) ErrorKind {
	switch s {
	case "validation":
		return KindValidation
	case "not_found":
		return KindNotFound
	case "conflict":
		return KindConflict
	case "downstream":
		return KindDownstream
	default:
		return KindUnknown
	}
}
