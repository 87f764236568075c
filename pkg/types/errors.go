package types

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable tag identifying a class of failure. Kinds are part
// of the external contract: the API layer maps them to response codes and
// clients may branch on them.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindAgentNotAvailable  ErrorKind = "agent_not_available"
	KindExecutionFailure   ErrorKind = "execution_failure"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// Error is a kind-tagged error carrying a human-readable message.
type Error struct {
	Kind    ErrorKind
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

// Errorf creates a kind-tagged error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags an underlying error with a kind and message.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind tag of err, or the empty string for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind tag.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
