package services

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks client input that is malformed or inconsistent.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a write that collides with an existing record.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks bad credentials. It never says which part was wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
)

// Message returns the client-facing part of an error built as
// fmt.Errorf("%w: message", sentinel).
func Message(err error) string {
	msg := err.Error()
	for _, s := range []error{ErrValidation, ErrConflict, ErrUnauthorized, ErrNotFound} {
		if rest, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
