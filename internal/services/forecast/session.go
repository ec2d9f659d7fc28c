package forecast

import (
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
)

// State is the lifecycle stage of a forecast session.
type State int

const (
	StateEmpty State = iota
	StateEditing
	StatePartiallySaved
	StateFullySaved
	StateSubmitted
)

var stateNames = [...]string{"empty", "editing", "partially_saved", "fully_saved", "submitted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Snapshot is an immutable submitted forecast.
type Snapshot struct {
	Symbol      string        `json:"symbol"`
	SubmittedAt time.Time     `json:"submitted_at"`
	BasePrice   float64       `json:"base_price"`
	BaseTime    time.Time     `json:"base_time"`
	Candles     []models.OHLC `json:"candles"`
}

func (s Snapshot) copy() Snapshot {
	s.Candles = append([]models.OHLC(nil), s.Candles...)
	return s
}

// Points returns the snapshot as 1-based user forecast points.
func (s Snapshot) Points() []models.UserForecastPoint {
	pts := make([]models.UserForecastPoint, len(s.Candles))
	for i, c := range s.Candles {
		pts[i] = models.UserForecastPoint{Index: i + 1, OHLC: c}
	}
	return pts
}

// Session holds the N editable slots for one symbol. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	steps     int
	now       func() time.Time
	symbol    string
	basePrice float64
	baseTime  time.Time
	slots     []Slot
	submitted *Snapshot
	// set by edits after a submit; moves the session back to editing
	dirty      bool
	allSavedAt time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates an empty session with the given number of steps.
func NewSession(steps int, opts ...SessionOption) *Session {
	if steps <= 0 {
		steps = DefaultSteps
	}
	s := &Session{steps: steps, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DefaultSteps is the forecast horizon used when none is configured.
const DefaultSteps = 5

// Open starts a fresh session for symbol. Slot 1's open is seeded from the
// last realized close. Any prior state, submitted snapshot included, is dropped.
func (s *Session) Open(symbol string, lastClose float64, lastTime time.Time) {
	s.Reset()
	s.symbol = symbol
	s.basePrice = lastClose
	s.baseTime = lastTime
	s.slots = NewSlots(s.steps, models.Float(lastClose))
}

// Reset discards all slot state.
func (s *Session) Reset() {
	s.symbol = ""
	s.basePrice = 0
	s.baseTime = time.Time{}
	s.slots = nil
	s.submitted = nil
	s.dirty = false
	s.allSavedAt = time.Time{}
}

func (s *Session) Symbol() string      { return s.symbol }
func (s *Session) Steps() int          { return s.steps }
func (s *Session) BasePrice() float64  { return s.basePrice }
func (s *Session) BaseTime() time.Time { return s.baseTime }

// AllSavedAt is when every slot last became saved, zero otherwise.
func (s *Session) AllSavedAt() time.Time { return s.allSavedAt }

// Slots returns a copy of the current slots.
func (s *Session) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Submitted returns the last submitted snapshot, if any.
func (s *Session) Submitted() (Snapshot, bool) {
	if s.submitted == nil {
		return Snapshot{}, false
	}
	return s.submitted.copy(), true
}

// State derives the lifecycle stage from slot state.
func (s *Session) State() State {
	if s.symbol == "" {
		return StateEmpty
	}
	if s.submitted != nil && !s.dirty {
		return StateSubmitted
	}
	saved := 0
	for _, sl := range s.slots {
		if sl.Saved {
			saved++
		}
	}
	switch {
	case saved == len(s.slots):
		return StateFullySaved
	case saved > 0:
		return StatePartiallySaved
	default:
		return StateEditing
	}
}

// ApplyEdit edits one field of one slot, propagating a close to the next open.
func (s *Session) ApplyEdit(index int, field Field, value *float64) error {
	if s.symbol == "" {
		return ErrNoSession
	}
	slots, err := ApplyEdit(s.slots, index, field, value)
	if err != nil {
		return err
	}
	s.slots = slots
	if s.submitted != nil {
		s.dirty = true
	}
	s.allSavedAt = time.Time{}
	return nil
}

// SaveSlot validates and marks slot index saved.
func (s *Session) SaveSlot(index int) error {
	if s.symbol == "" {
		return ErrNoSession
	}
	slots, err := SaveSlot(s.slots, index)
	if slots != nil {
		s.slots = slots
	}
	if err != nil {
		return err
	}
	if s.allSavedAt.IsZero() && s.State() == StateFullySaved {
		s.allSavedAt = s.now()
	}
	return nil
}

// Submit re-validates every slot and, only if all are saved and valid,
// records an immutable snapshot. On failure nothing changes and the
// returned *SessionError lists every failing slot.
func (s *Session) Submit() (Snapshot, error) {
	if s.symbol == "" {
		return Snapshot{}, ErrNoSession
	}
	var failed []*ValidationError
	candles := make([]models.OHLC, 0, len(s.slots))
	for _, sl := range s.slots {
		if !sl.Saved {
			failed = append(failed, &ValidationError{Slot: sl.Index, Err: ErrUnsaved})
			continue
		}
		if err := Validate(sl.Draft); err != nil {
			failed = append(failed, withSlot(err, sl.Index))
			continue
		}
		c, _ := sl.Draft.Complete()
		candles = append(candles, c)
	}
	if len(failed) > 0 {
		return Snapshot{}, &SessionError{Slots: failed}
	}
	snap := Snapshot{
		Symbol:      s.symbol,
		SubmittedAt: s.now(),
		BasePrice:   s.basePrice,
		BaseTime:    s.baseTime,
		Candles:     candles,
	}
	s.submitted = &snap
	s.dirty = false
	return snap.copy(), nil
}

// Clone returns an independent copy, used to stage a submit that may be
// rolled back if delivery fails.
func (s *Session) Clone() *Session {
	cp := *s
	cp.slots = s.Slots()
	if s.submitted != nil {
		snap := s.submitted.copy()
		cp.submitted = &snap
	}
	return &cp
}
