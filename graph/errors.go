package graph

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// Виды ошибок. Проверяются через errors.Is.
var (
	ErrDuplicateID      = errors.New("duplicate id")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrSourceNotFound   = errors.New("source node not found")
	ErrTargetNotFound   = errors.New("target node not found")
	ErrNotFound         = errors.New("not found")
	ErrNotReachable     = errors.New("not reachable")
	ErrValidation       = errors.New("validation error")
)

// Error - ошибка операции над графом с идентификатором сущности, к которой она относится.
type Error struct {
	Kind    error
	ID      string
	Message string

	frame xerrors.Frame
}

func newError(kind error, id, msg string) *Error {
	return &Error{
		Kind:    kind,
		ID:      id,
		Message: msg,
		frame:   xerrors.Caller(1),
	}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.ID != "":
		return fmt.Sprintf("%v: %s: %q", e.Kind, e.Message, e.ID)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	case e.ID != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.ID)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error { return e.Kind }

func (e *Error) Format(s fmt.State, v rune) { xerrors.FormatError(e, s, v) }

func (e *Error) FormatError(p xerrors.Printer) error {
	p.Print(e.Error())
	e.frame.Format(p)
	return nil
}
