package adapter

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/brandon/mailbox-adapter/internal/compose"
	"github.com/brandon/mailbox-adapter/internal/draft"
	"github.com/brandon/mailbox-adapter/internal/email"
)

// Kind classifies adapter errors
type Kind int

// Error kinds
const (
	KindTransport Kind = iota
	KindIdentity
	KindPrecondition
	KindInvalidArgument
	KindNotADraft
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindIdentity:
		return "identity"
	case KindPrecondition:
		return "precondition"
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotADraft:
		return "not a draft"
	case KindNotFound:
		return "not found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every adapter operation
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is; they match any *Error of the same kind
var (
	ErrTransport       = &Error{Kind: KindTransport}
	ErrIdentity        = &Error{Kind: KindIdentity}
	ErrPrecondition    = &Error{Kind: KindPrecondition}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotADraft       = &Error{Kind: KindNotADraft}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels of the same kind. A not-a-draft error is also a
// precondition error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind || (t.Kind == KindPrecondition && e.Kind == KindNotADraft)
}

// Cause returns the error an adapter error was built from
func Cause(err error) error {
	var ae *Error
	if errors.As(err, &ae) && ae.Err != nil {
		return errors.Cause(ae.Err)
	}
	return err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.WithMessage(err, op)}
}

// reject builds an error for a request refused before any transport call
func reject(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.WithMessage(fmt.Errorf(format, args...), op)}
}

// classify turns an error of a lower layer into an adapter error.
// Transport failures are wrapped once with a stack trace.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, draft.ErrNoKey), errors.Is(err, draft.ErrCrossAccount):
		return newError(KindPrecondition, op, err)
	case errors.Is(err, draft.ErrNotADraft):
		return newError(KindNotADraft, op, err)
	case errors.Is(err, draft.ErrNoRecipients):
		return newError(KindInvalidArgument, op, err)
	case errors.Is(err, email.ErrNoMessage), errors.Is(err, compose.ErrNoAttachment):
		return newError(KindNotFound, op, err)
	}
	return &Error{Kind: KindTransport, Op: op, Err: errors.Wrap(err, op)}
}
