package anki

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreachable means AnkiConnect could not be contacted at all
	ErrUnreachable = errors.New("cannot connect to AnkiConnect, ensure Anki is running with the AnkiConnect add-on installed")

	// ErrNullResult means AnkiConnect answered without error but also without a result
	ErrNullResult = errors.New("null response from AnkiConnect")
)

// APIError is an error string reported by AnkiConnect for an action
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AnkiConnect %s: %s", e.Action, e.Message)
}

// DuplicateError means an identical note already exists in the target deck
type DuplicateError struct {
	Front    string
	Existing []int64 // IDs of matching notes, when they could be looked up
	Cause    error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("note %q already exists", e.Front)
}

func (e *DuplicateError) Unwrap() error {
	return e.Cause
}

// IsDuplicate reports whether err, or any error it wraps, is a *DuplicateError
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}

// isDuplicateMessage inspects an AnkiConnect error string. Recent versions say
// "cannot create note because it is a duplicate", older ones "already exists".
func isDuplicateMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "duplicate") || strings.Contains(lower, "already exists")
}
