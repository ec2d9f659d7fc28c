package forecast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncomplete means a candle has a missing or non-finite field.
	ErrIncomplete = errors.New("candle incomplete")
	// ErrInconsistentBounds means high/low do not bracket open and close.
	ErrInconsistentBounds = errors.New("high/low inconsistent with open/close")
	// ErrIncompleteSession means submit found unsaved or invalid slots.
	ErrIncompleteSession = errors.New("session has unsaved or invalid slots")
	// ErrStaleResult marks an async result for a session that is no longer current.
	ErrStaleResult = errors.New("stale result")

	ErrUnsaved        = errors.New("slot not saved")
	ErrNoSession      = errors.New("no session open")
	ErrSlotOutOfRange = errors.New("slot index out of range")
	ErrUnknownField   = errors.New("unknown candle field")
)

// ValidationError carries field-level feedback for one slot.
// Slot is 0 when the candle was validated outside a session.
type ValidationError struct {
	Slot  int
	Field Field
	Err   error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Slot > 0 {
		fmt.Fprintf(&b, "slot %d: ", e.Slot)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SessionError is returned by Submit; it lists every failing slot.
type SessionError struct {
	Slots []*ValidationError
}

func (e *SessionError) Error() string {
	parts := make([]string, 0, len(e.Slots))
	for _, s := range e.Slots {
		parts = append(parts, s.Error())
	}
	return fmt.Sprintf("%s: %s", ErrIncompleteSession, strings.Join(parts, "; "))
}

func (e *SessionError) Unwrap() error { return ErrIncompleteSession }
