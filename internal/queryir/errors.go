package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/querify/internal/ir"
)

// ErrorCode classifies query errors for programmatic handling.
type ErrorCode string

const (
	// ErrCodeInvalidQuery indicates a filter whose shape or values break a
	// normalization or validation rule.
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"

	// ErrCodeUnrecognized indicates no registered kind matched a fragment.
	ErrCodeUnrecognized ErrorCode = "UNRECOGNIZED_EXPR"

	// ErrCodeUnknownKind indicates a registry lookup miss.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"

	// ErrCodeUnsupported indicates a node that a target cannot render.
	ErrCodeUnsupported ErrorCode = "RENDER_UNSUPPORTED"

	// ErrCodeStaticConfig indicates a broken kind registration.
	ErrCodeStaticConfig ErrorCode = "STATIC_CONFIG"
)

// Error is the error type returned by normalization, construction and
// rendering.
type Error struct {
	Code    ErrorCode
	Message string

	// Fragment is the offending JSON fragment, when there is one.
	Fragment any

	// Target is set on render errors.
	Target Target

	// Kind names the node kind involved, when there is one.
	Kind string

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches sentinels by code. A sentinel is an *Error with no message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidQuery = &Error{Code: ErrCodeInvalidQuery}
	ErrUnrecognized = &Error{Code: ErrCodeUnrecognized}
	ErrUnknownKind  = &Error{Code: ErrCodeUnknownKind}
	ErrUnsupported  = &Error{Code: ErrCodeUnsupported}
	ErrStaticConfig = &Error{Code: ErrCodeStaticConfig}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsInvalidQuery reports whether err is an invalid-query error.
func IsInvalidQuery(err error) bool {
	return CodeOf(err) == ErrCodeInvalidQuery
}

// IsUnsupported reports whether err is a render-unsupported error.
func IsUnsupported(err error) bool {
	return CodeOf(err) == ErrCodeUnsupported
}

// IsStaticConfig reports whether err is a registration error.
func IsStaticConfig(err error) bool {
	return CodeOf(err) == ErrCodeStaticConfig
}

func invalidQuery(fragment any, format string, args ...any) *Error {
	return &Error{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf(format, args...),
		Fragment: fragment,
	}
}

func unrecognized(k *Kind, fragment any) *Error {
	return &Error{
		Code:     ErrCodeUnrecognized,
		Message:  fmt.Sprintf("unrecognized expression type for %s: %s", k.Name, ir.Format(fragment)),
		Fragment: fragment,
		Kind:     k.Name,
	}
}

func staticConfig(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeStaticConfig,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unsupported returns the error a backend reports for a node it cannot
// render.
func Unsupported(target Target, e Expr) *Error {
	name := "<nil>"
	if e != nil {
		name = e.Kind().Name
	}
	return &Error{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("%s cannot be rendered for target %s", name, target),
		Target:  target,
		Kind:    name,
	}
}

// Unsupportedf returns a render-unsupported error with a custom message.
func Unsupportedf(target Target, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf(format, args...),
		Target:  target,
	}
}
