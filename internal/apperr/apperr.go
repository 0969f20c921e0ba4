// Package apperr is the error taxonomy shared by services and handlers.
// Handlers map Kind to an HTTP status; everything unclassified is internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindGateway
)

type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg, Err: err}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "validation_error", Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidCurrency   = New(KindValidation, "invalid_currency", "unsupported currency")
	ErrInvalidAmount     = New(KindValidation, "invalid_amount", "amount must be non-zero and finite")
	ErrInsufficientFunds = New(KindInsufficientFunds, "insufficient_funds", "insufficient funds")
	ErrNotFound          = New(KindNotFound, "not_found", "not found")
	ErrUnauthorized      = New(KindUnauthorized, "unauthorized", "unauthorized")
	ErrInvalidTransition = New(KindConflict, "invalid_transition", "status transition not allowed")
)

// KindOf extracts the Kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the machine code from err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}
