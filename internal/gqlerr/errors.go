// Package gqlerr defines the structured errors resolvers and context
// factories return. The executor turns them into located GraphQL errors whose
// extensions.code is derived from the error kind.
package gqlerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of its message.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindValidation
	KindConflict
)

// Codes carried in extensions.code.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

// Code returns the wire code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindAuthentication:
		return CodeUnauthenticated
	case KindAuthorization:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindValidation:
		return CodeValidation
	case KindConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

func (k Kind) String() string { return k.Code() }

// Violation is one rejected input of a validation error.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a resolver-level failure with a kind and structured detail.
type Error struct {
	Kind       Kind
	Message    string
	Details    map[string]any
	Violations []Violation
	Cause      error
}

// Error returns the client-facing message. The cause is not included; it is
// reported through Unwrap and server-side logs.
func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Code returns the wire code for the error's kind.
func (e *Error) Code() string { return e.Kind.Code() }

// Extensions returns the extension map placed on the GraphQL error: the code,
// then details, then violations for validation failures.
func (e *Error) Extensions() map[string]any {
	ext := make(map[string]any, len(e.Details)+2)
	for k, v := range e.Details {
		ext[k] = v
	}
	ext["code"] = e.Code()
	if len(e.Violations) > 0 {
		ext["violations"] = e.Violations
	}
	return ext
}

// WithDetail returns a copy of e with a structured detail exposed in
// extensions. e itself is not modified, so sentinels stay safe to share.
func (e *Error) WithDetail(key string, value any) *Error {
	c := e.clone()
	c.Details[key] = value
	return c
}

// WithViolation returns a copy of e with one more rejected input.
func (e *Error) WithViolation(field, message string) *Error {
	c := e.clone()
	c.Violations = append(c.Violations, Violation{Field: field, Message: message})
	return c
}

// WithCause returns a copy of e with cause attached.
func (e *Error) WithCause(err error) *Error {
	c := e.clone()
	c.Cause = err
	return c
}

func (e *Error) clone() *Error {
	c := *e
	c.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Violations = append([]Violation(nil), e.Violations...)
	return &c
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) *Error {
	return New(KindAuthentication, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Internal wraps an unexpected failure. The message is what development mode
// shows; production transports mask it.
func Internal(cause error) *Error {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// Sentinels usable with errors.Is; they match any *Error of the same kind.
var (
	ErrUnauthenticated = &Error{Kind: KindAuthentication, Message: "authentication required"}
	ErrForbidden       = &Error{Kind: KindAuthorization, Message: "forbidden"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInternal        = &Error{Kind: KindInternal, Message: "internal error"}
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the wire code for err. The first error in the chain with a
// Code method decides, so already located GraphQL errors keep their code.
func CodeOf(err error) string {
	var c interface{ Code() string }
	if errors.As(err, &c) {
		if code := c.Code(); code != "" {
			return code
		}
	}
	return CodeInternal
}

// ExtensionsOf returns the extension map for err. Errors outside the taxonomy
// are reported as INTERNAL_ERROR.
func ExtensionsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Extensions()
	}
	return map[string]any{"code": CodeInternal}
}
