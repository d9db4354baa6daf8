package apperr

import (
	"errors"
	"strings"
)

// Kind classifies a failure so the interface layer can map it to a response.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the tagged error returned by the domain and application layers.
// Messages holds every accumulated problem; Fields names the offending
// fields for conflicts.
type Error struct {
	Kind     Kind
	Messages []string
	Fields   []string
	Err      error
}

func (e *Error) Error() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation failure carrying all messages.
func Validation(msgs ...string) *Error {
	return &Error{Kind: KindValidation, Messages: msgs}
}

// Conflict reports a uniqueness violation on the given fields.
func Conflict(fields ...string) *Error {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f+" already exists")
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "duplicate value")
	}
	return &Error{Kind: KindConflict, Messages: msgs, Fields: fields}
}

// NotFound reports a missing operation target.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Messages: []string{msg}}
}

// Internal wraps an infrastructure failure. Its message never reaches clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf returns the kind of err, KindInternal for anything untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is a tagged error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// MessagesOf returns the client-facing messages of a tagged error.
func MessagesOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Messages
	}
	return nil
}
