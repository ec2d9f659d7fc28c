package forecast

import (
	"fmt"

	"FinRisk/internal/domain/models"
)

// Slot is one forecast step being edited. Err holds the most recent save
// failure for form feedback and is cleared by any edit of the slot.
type Slot struct {
	Index int   `json:"index"`
	Draft Draft `json:"draft"`
	Saved bool  `json:"saved"`
	Err   error `json:"-"`
}

// NewSlots returns n empty slots; slot 1's open is seeded from seedOpen.
func NewSlots(n int, seedOpen *float64) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i].Index = i + 1
	}
	if n > 0 && seedOpen != nil {
		slots[0].Draft = slots[0].Draft.With(FieldOpen, seedOpen)
	}
	return slots
}

// ApplyEdit sets field of slot index (1-based) and returns the updated slots.
// The input slice is not modified. Any edit clears the edited slot's saved
// flag. A non-nil close on slot i < N overwrites the open of slot i+1; if
// that open changed, slot i+1 is no longer saved either. Clearing a close
// leaves the next open alone.
func ApplyEdit(slots []Slot, index int, field Field, value *float64) ([]Slot, error) {
	if index < 1 || index > len(slots) {
		return nil, fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}

	out := make([]Slot, len(slots))
	copy(out, slots)

	i := index - 1
	out[i].Draft = out[i].Draft.With(field, value)
	out[i].Saved = false
	out[i].Err = nil

	if field == FieldClose && value != nil && index < len(out) {
		next := &out[i+1]
		if !sameValue(next.Draft.Open, value) {
			next.Draft = next.Draft.With(FieldOpen, value)
			next.Saved = false
			next.Err = nil
		}
	}
	return out, nil
}

// SaveSlot validates slot index and marks it saved. On failure the returned
// slots keep Draft and Saved unchanged and record the error in Err.
func SaveSlot(slots []Slot, index int) ([]Slot, error) {
	if index < 1 || index > len(slots) {
		return nil, fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	out := make([]Slot, len(slots))
	copy(out, slots)

	s := &out[index-1]
	if err := Validate(s.Draft); err != nil {
		verr := withSlot(err, index)
		s.Err = verr
		return out, verr
	}
	s.Saved = true
	s.Err = nil
	return out, nil
}

// Candles returns the complete candles of all slots in order.
func Candles(slots []Slot) ([]models.OHLC, bool) {
	out := make([]models.OHLC, 0, len(slots))
	for _, s := range slots {
		c, ok := s.Draft.Complete()
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

func withSlot(err error, index int) *ValidationError {
	if v, ok := err.(*ValidationError); ok {
		cp := *v
		cp.Slot = index
		return &cp
	}
	return &ValidationError{Slot: index, Err: err}
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
