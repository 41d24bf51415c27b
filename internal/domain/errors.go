package domain

import (
	"errors"
	"fmt"
)

// Validation errors raised by payee resolution and distribution. They are
// fatal and caller-facing: no partial transfer list ever accompanies one.
var (
	ErrInvalidPayee           = errors.New("invalid payee")
	ErrInvalidPayeeGroup      = errors.New("invalid payee group")
	ErrInvalidPayeeDependency = errors.New("invalid payee dependency")
)

// PayeeError wraps a validation sentinel with the payee index and field
// that triggered it.
type PayeeError struct {
	Kind    error
	Index   int
	Field   string
	Message string
}

// Error formats the error with its positional context.
func (e *PayeeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: payee[%d]: %s", e.Kind, e.Index, e.Message)
	}
	return fmt.Sprintf("%s: payee[%d].%s: %s", e.Kind, e.Index, e.Field, e.Message)
}

// Unwrap exposes the sentinel for errors.Is checks.
func (e *PayeeError) Unwrap() error {
	return e.Kind
}

// NewPayeeError builds a positional validation error.
func NewPayeeError(kind error, index int, field, message string) error {
	return &PayeeError{Kind: kind, Index: index, Field: field, Message: message}
}
