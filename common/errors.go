package common

import (
	"errors"
	"fmt"
)

// Kind is an error category. Callers match on kinds with errors.Is instead of
// concrete error values, so any error produced by NewError(kind, ...) satisfies
// errors.Is(err, kind).
type Kind struct {
	name string
}

func (k *Kind) Error() string {
	return k.name
}

var (
	OutOfRange       = &Kind{"out of range"}
	DivideByZero     = &Kind{"divide by zero"}
	MismatchType     = &Kind{"mismatch type"}
	IncompatibleType = &Kind{"incompatible type"}
	OutOfMemory      = &Kind{"out of memory"}
	NotImplemented   = &Kind{"not implemented"}
	IO               = &Kind{"io error"}
	LogicError       = &Kind{"logic error"}
	Unreachable      = &Kind{"unreachable"}
	Conversion       = &Kind{"conversion error"}
)

type kindError struct {
	kind *Kind
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %s", e.kind.name, e.msg, e.err.Error())
	}
	return fmt.Sprintf("%s: %s", e.kind.name, e.msg)
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.err
}

func NewError(kind *Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func NewErrorf(kind *Kind, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind to an underlying error while keeping it reachable
// through errors.Unwrap.
func WrapError(kind *Kind, msg string, err error) error {
	return &kindError{kind: kind, msg: msg, err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind *Kind) bool {
	return errors.Is(err, kind)
}
