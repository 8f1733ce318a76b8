// Package pgerror implements the client-side error taxonomy described in
// spec.md section 7: a structured ServerError decoded from the backend's
// ErrorResponse, plus the client-only fatal/local error kinds that the
// connection, codec and type layer can raise.
package pgerror

import (
	"errors"
	"fmt"
)

// Severity mirrors the severity field of a Postgres ErrorResponse/NoticeResponse.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// ServerError is a structured ErrorResponse received from the backend. It is
// recovered locally by draining to ReadyForQuery; the connection that
// produced it remains usable (spec.md section 7).
type ServerError struct {
	Severity Severity
	Code     Code
	Message  string
	Detail   string
	Hint     string
	Position int32
	Where    string
	Routine  string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Severity, e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Severity, e.Message, e.Code)
}

// Is reports whether target is a ServerError carrying the same SQLSTATE,
// allowing callers to branch with errors.Is(err, pgerror.WithCode(code)).
func (e *ServerError) Is(target error) bool {
	var other *ServerError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithCode constructs a sentinel ServerError usable with errors.Is to test
// only the SQLSTATE of a returned error, e.g.:
//
//	if errors.Is(err, pgerror.WithCode(pgerror.DivisionByZero)) { ... }
func WithCode(code Code) error {
	return &ServerError{Code: code}
}

// Kind enumerates the client-only error taxonomy from spec.md section 7.
// ServerError is reported separately since it always carries a SQLSTATE.
type Kind int

const (
	_ Kind = iota
	KindIO
	KindFrameMalformed
	KindUnknownMessageKind
	KindUnknownSubMessage
	KindUnexpectedBackendMessage
	KindAuthUnsupported
	KindAuthFailed
	KindAuthServerSignatureMismatch
	KindTypeMismatch
	KindUnsupportedFieldType
	KindUnexpectedNullValue
	KindDataTypeParseError
	KindCopyProtocolViolation
	KindConfigurationError
	KindWrongConnection
	KindUnsupportedMultiDimensional
	KindElementTypeMismatch
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindFrameMalformed:
		return "FrameMalformed"
	case KindUnknownMessageKind:
		return "UnknownMessageKind"
	case KindUnknownSubMessage:
		return "UnknownSubMessage"
	case KindUnexpectedBackendMessage:
		return "UnexpectedBackendMessage"
	case KindAuthUnsupported:
		return "AuthUnsupported"
	case KindAuthFailed:
		return "AuthFailed"
	case KindAuthServerSignatureMismatch:
		return "AuthServerSignatureMismatch"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindUnsupportedFieldType:
		return "UnsupportedFieldType"
	case KindUnexpectedNullValue:
		return "UnexpectedNullValue"
	case KindDataTypeParseError:
		return "DataTypeParseError"
	case KindCopyProtocolViolation:
		return "CopyProtocolViolation"
	case KindConfigurationError:
		return "ConfigurationError"
	case KindWrongConnection:
		return "WrongConnection"
	case KindUnsupportedMultiDimensional:
		return "UnsupportedMultiDimensional"
	case KindElementTypeMismatch:
		return "ElementTypeMismatch"
	default:
		return "Unknown"
	}
}

// Error is a client-local protocol or conversion error tagged with a Kind.
// Fatal kinds poison the connection; see (*elefantpg.Conn).poison.
type Error struct {
	Kind    Kind
	Message string
	// Fatal connections cannot continue issuing flows; the caller must
	// discard the connection rather than call reset.
	Fatal bool
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, pgerror.New(pgerror.KindX, "")) to match by Kind
// alone, independent of Message/Cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs a non-fatal *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Newf is an alias of New kept for call sites that read more naturally with
// an explicit "f" suffix when formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, format, args...)
}

// Fatalf constructs a fatal *Error of the given kind.
func Fatalf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Fatal: true}
}

// Wrap wraps cause with a client Kind, optionally marking it fatal.
func Wrap(kind Kind, fatal bool, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Fatal: fatal, Cause: cause}
}

// IsFatal reports whether err poisons the connection that produced it,
// matching the propagation policy in spec.md section 7: I/O and protocol
// errors are fatal, ServerError and type-conversion errors are not.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal
	}
	var se *ServerError
	if errors.As(err, &se) {
		return false
	}
	return err != nil
}
