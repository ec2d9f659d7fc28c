package forecast

import (
	"fmt"
	"sort"

	"FinRisk/internal/domain/models"
)

// Ticket identifies the session an async fetch was issued for. Results
// carrying an outdated ticket are discarded.
type Ticket struct {
	Symbol string `json:"symbol"`
	Epoch  uint64 `json:"epoch"`
}

// SeriesStore holds the latest value of each source and the timeline and
// report derived from them. Every accepted update recomputes both from
// scratch. It is not safe for concurrent use.
type SeriesStore struct {
	ticket   Ticket
	actual   *models.ActualSeries
	ai       *models.AISeries
	user     *models.UserSeries
	timeline []models.TimelineEntry
	report   models.AccuracyReport
}

func NewSeriesStore() *SeriesStore {
	return &SeriesStore{}
}

// Reset drops all sources and starts a new epoch for symbol.
func (s *SeriesStore) Reset(symbol string) Ticket {
	s.ticket = Ticket{Symbol: symbol, Epoch: s.ticket.Epoch + 1}
	s.actual, s.ai, s.user = nil, nil, nil
	s.recompute()
	return s.ticket
}

// Ticket returns the current ticket.
func (s *SeriesStore) Ticket() Ticket { return s.ticket }

func (s *SeriesStore) check(t Ticket, symbol string) error {
	if s.ticket.Symbol == "" || t != s.ticket {
		return fmt.Errorf("%w: ticket %s/%d, current %s/%d", ErrStaleResult, t.Symbol, t.Epoch, s.ticket.Symbol, s.ticket.Epoch)
	}
	if symbol != "" && symbol != t.Symbol {
		return fmt.Errorf("%w: series for %s, session for %s", ErrStaleResult, symbol, t.Symbol)
	}
	return nil
}

// SetActual replaces the actual source.
func (s *SeriesStore) SetActual(t Ticket, a *models.ActualSeries) error {
	if err := s.check(t, symbolOf(a)); err != nil {
		return err
	}
	s.actual = a
	s.recompute()
	return nil
}

// SetAI replaces the AI source.
func (s *SeriesStore) SetAI(t Ticket, a *models.AISeries) error {
	sym := ""
	if a != nil {
		sym = a.Symbol
	}
	if err := s.check(t, sym); err != nil {
		return err
	}
	s.ai = a
	s.recompute()
	return nil
}

// SetUser replaces the user source.
func (s *SeriesStore) SetUser(t Ticket, u *models.UserSeries) error {
	sym := ""
	if u != nil {
		sym = u.Symbol
	}
	if err := s.check(t, sym); err != nil {
		return err
	}
	s.user = u
	s.recompute()
	return nil
}

// UpsertActual inserts or replaces realized candles by timestamp.
func (s *SeriesStore) UpsertActual(t Ticket, candles ...models.Candle) error {
	if err := s.check(t, ""); err != nil {
		return err
	}
	next := &models.ActualSeries{Symbol: t.Symbol}
	if s.actual != nil {
		cp := *s.actual
		cp.Candles = append([]models.Candle(nil), s.actual.Candles...)
		next = &cp
	}
	for _, c := range candles {
		replaced := false
		for i := range next.Candles {
			if next.Candles[i].Time.Equal(c.Time) {
				next.Candles[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			next.Candles = append(next.Candles, c)
		}
	}
	sort.SliceStable(next.Candles, func(i, j int) bool { return next.Candles[i].Time.Before(next.Candles[j].Time) })
	if n := len(next.Candles); n > 0 {
		last := next.Candles[n-1]
		next.LastPrice, next.LastTime = last.Close, last.Time
	}
	s.actual = next
	s.recompute()
	return nil
}

// Has reports whether a source currently holds data.
func (s *SeriesStore) Has(src models.Source) bool {
	switch src {
	case models.SourceActual:
		return s.actual != nil
	case models.SourceAI:
		return s.ai != nil
	case models.SourceUser:
		return s.user != nil
	}
	return false
}

func (s *SeriesStore) Actual() *models.ActualSeries { return s.actual }
func (s *SeriesStore) AI() *models.AISeries         { return s.ai }
func (s *SeriesStore) User() *models.UserSeries     { return s.user }

// Timeline returns a copy of the merged timeline.
func (s *SeriesStore) Timeline() []models.TimelineEntry {
	out := make([]models.TimelineEntry, len(s.timeline))
	copy(out, s.timeline)
	return out
}

func (s *SeriesStore) Report() models.AccuracyReport { return s.report }

func (s *SeriesStore) recompute() {
	s.timeline = Merge(s.actual, s.ai, s.user)
	s.report = Score(s.timeline)
}

func symbolOf(a *models.ActualSeries) string {
	if a == nil {
		return ""
	}
	return a.Symbol
}
