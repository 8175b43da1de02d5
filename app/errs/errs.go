package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindSecurity   Kind = "security_denied"
	KindTool       Kind = "tool_execution"
	KindModel      Kind = "model_client"
	KindTimeout    Kind = "timeout"
	KindConfig     Kind = "configuration"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the category carried by err, or "" when err has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Recoverable reports whether the loop may continue after err by feeding
// it back to the model as an observation. Everything else terminates the
// task.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindSecurity, KindTool:
		return true
	}
	return false
}
