// Package config holds the error taxonomy, secret redaction, and
// configuration-tree helpers shared across the core.
package config

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that need to branch on error
// category without string matching.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not-found"
	KindForbidden   Kind = "forbidden"
	KindUnavailable Kind = "unavailable"
	KindPolicy      Kind = "policy"
	KindUpstream    Kind = "upstream"
	KindInternal    Kind = "internal"
)

// Error is the core's typed error. Message is assumed to have already been
// through Redact when it may originate from config-derived data.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error { return newErr(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error    { return newErr(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error   { return newErr(KindForbidden, format, args...) }
func Unavailable(format string, args ...any) *Error { return newErr(KindUnavailable, format, args...) }
func Policy(format string, args ...any) *Error      { return newErr(KindPolicy, format, args...) }

func Upstream(err error, format string, args ...any) *Error {
	return wrapErr(KindUpstream, err, format, args...)
}

func Internal(err error, format string, args ...any) *Error {
	return wrapErr(KindInternal, err, format, args...)
}

// Is reports whether err (or anything it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
