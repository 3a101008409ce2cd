package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for transport mapping.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// Error is the error type returned by every auth operation.
// Two errors are equal under errors.Is when their codes match.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of e carrying err as its cause.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

var (
	ErrValidation = &Error{Kind: KindValidation, Code: "validation_failed", Message: "invalid request"}
	ErrUserExists = &Error{Kind: KindConflict, Code: "user_exists", Message: "user already exists with this email"}

	ErrInvalidCredentials  = &Error{Kind: KindAuthentication, Code: "invalid_credentials", Message: "invalid email or password"}
	ErrTokenMissing        = &Error{Kind: KindAuthentication, Code: "token_missing", Message: "token missing"}
	ErrTokenExpired        = &Error{Kind: KindAuthentication, Code: "token_expired", Message: "token expired"}
	ErrTokenMalformed      = &Error{Kind: KindAuthentication, Code: "token_malformed", Message: "invalid token"}
	ErrWrongIssuer         = &Error{Kind: KindAuthentication, Code: "wrong_issuer", Message: "token issued by another system"}
	ErrWrongAudience       = &Error{Kind: KindAuthentication, Code: "wrong_audience", Message: "token intended for another audience"}
	ErrInvalidTokenType    = &Error{Kind: KindAuthentication, Code: "invalid_token_type", Message: "invalid token type"}
	ErrInvalidRefreshToken = &Error{Kind: KindAuthentication, Code: "invalid_refresh_token", Message: "invalid refresh token"}
	ErrStaleToken          = &Error{Kind: KindAuthentication, Code: "stale_token", Message: "token invalid for current user"}

	ErrUserNotFound = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}

	ErrInternal = &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error"}
)

var codes = map[string]*Error{}

func init() {
	for _, e := range []*Error{
		ErrValidation, ErrUserExists, ErrInvalidCredentials, ErrTokenMissing, ErrTokenExpired,
		ErrTokenMalformed, ErrWrongIssuer, ErrWrongAudience, ErrInvalidTokenType,
		ErrInvalidRefreshToken, ErrStaleToken, ErrUserNotFound, ErrInternal,
	} {
		codes[e.Code] = e
	}
}

// internalError wraps an unexpected failure.
func internalError(msg string, err error) *Error {
	return ErrInternal.WithMessage(msg).WithCause(err)
}

// AsError converts any error into an *Error, classifying unknown ones as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// ErrorPayload is the wire form of an Error between modules.
type ErrorPayload struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// Payload encodes err for a request-reply response. It returns nil for nil.
func Payload(err error) *ErrorPayload {
	e := AsError(err)
	if e == nil {
		return nil
	}
	p := &ErrorPayload{Kind: e.Kind, Code: e.Code, Message: e.Message}
	if e.Err != nil {
		p.Cause = e.Err.Error()
	}
	return p
}

// Err rebuilds the Error carried by a payload.
func (p *ErrorPayload) Err() error {
	if p == nil {
		return nil
	}
	e := &Error{Kind: p.Kind, Code: p.Code, Message: p.Message}
	if known, ok := codes[p.Code]; ok && e.Kind == "" {
		e.Kind = known.Kind
	}
	if e.Kind == "" {
		e.Kind = KindInternal
	}
	if p.Cause != "" {
		e.Err = errors.New(p.Cause)
	}
	return e
}
