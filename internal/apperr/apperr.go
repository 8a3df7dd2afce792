// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error kinds shared by the lifecycle engine,
// the controllers and the HTTP layer. Store code keeps wrapping driver
// errors with fmt.Errorf; controllers classify them with a Kind before
// they reach a notice or a response.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for notices and HTTP status mapping.
type Kind string

const (
	KindPermissionDenied  Kind = "permission_denied"
	KindUnauthenticated   Kind = "unauthenticated"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindStaleWrite        Kind = "stale_write"
	KindBusy              Kind = "busy"
	KindStore             Kind = "store"
)

// Error is a classified application error. Message is safe to show to the
// user; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrStaleWrite        = &Error{Kind: KindStaleWrite}
	ErrBusy              = &Error{Kind: KindBusy}
	ErrStore             = &Error{Kind: KindStore}
)

// New returns a classified error with a user-facing message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. Already classified errors keep their kind.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// Store wraps a persistence failure. The description is kept so the
// initiating action can surface it.
func Store(op string, err error) error {
	return Wrap(KindStore, op, err)
}

// KindOf reports the kind of err, or KindStore for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}
