package usecase

import (
	"context"
	"sync"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/forecast"
)

// View is a consistent snapshot of a board, taken under its lock.
type View struct {
	ID        string                   `json:"id"`
	Symbol    string                   `json:"symbol"`
	State     forecast.State           `json:"state"`
	Ticket    forecast.Ticket          `json:"ticket"`
	BasePrice float64                  `json:"base_price"`
	BaseTime  time.Time                `json:"base_time"`
	Slots     []forecast.Slot          `json:"slots"`
	Submitted *forecast.Snapshot       `json:"submitted,omitempty"`
	Sources   map[models.Source]bool   `json:"sources"`
	Errors    map[models.Source]string `json:"errors,omitempty"`
	Timeline  []models.TimelineEntry   `json:"timeline"`
	Report    models.AccuracyReport    `json:"report"`
	Winner    string                   `json:"winner"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Board is one client's forecast session together with the series it is
// compared against. All access goes through the board's mutex.
type Board struct {
	ID string

	mu        sync.Mutex
	session   *forecast.Session
	store     *forecast.SeriesStore
	loadErr   map[models.Source]string
	cancel    context.CancelFunc
	updatedAt time.Time
	now       func() time.Time

	subs    map[int]chan View
	nextSub int
}

func newBoard(id string, steps int, now func() time.Time) *Board {
	return &Board{
		ID:      id,
		session: forecast.NewSession(steps, forecast.WithClock(now)),
		store:   forecast.NewSeriesStore(),
		loadErr: make(map[models.Source]string),
		now:     now,
		subs:    make(map[int]chan View),
	}
}

// reset starts a new epoch for symbol and returns the ticket that async
// loads for it must carry. Loads still running for the previous epoch are
// cancelled; their results would be stale anyway.
func (b *Board) reset(symbol string, cancel context.CancelFunc) forecast.Ticket {
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.session.Reset()
	b.loadErr = make(map[models.Source]string)
	b.touch()
	return b.store.Reset(symbol)
}

func (b *Board) current(t forecast.Ticket) bool { return b.store.Ticket() == t }

func (b *Board) symbol() string { return b.store.Ticket().Symbol }

// applyActual installs a fetched actual series. The first accepted series
// of an epoch opens the session, seeding slot 1 from the last price.
func (b *Board) applyActual(t forecast.Ticket, a *models.ActualSeries) error {
	if err := b.store.SetActual(t, a); err != nil {
		return err
	}
	if b.session.Symbol() == "" {
		b.session.Open(t.Symbol, a.LastPrice, a.LastTime)
	}
	delete(b.loadErr, models.SourceActual)
	b.touch()
	return nil
}

func (b *Board) applyAI(t forecast.Ticket, a *models.AISeries) error {
	if err := b.store.SetAI(t, a); err != nil {
		return err
	}
	delete(b.loadErr, models.SourceAI)
	b.touch()
	return nil
}

func (b *Board) applyUser(t forecast.Ticket, u *models.UserSeries) error {
	if err := b.store.SetUser(t, u); err != nil {
		return err
	}
	delete(b.loadErr, models.SourceUser)
	b.touch()
	return nil
}

// upsertActual merges one pushed candle. Like applyActual, it opens the
// session when the initial load never delivered an actual series.
func (b *Board) upsertActual(t forecast.Ticket, c models.Candle) error {
	if err := b.store.UpsertActual(t, c); err != nil {
		return err
	}
	if b.session.Symbol() == "" {
		a := b.store.Actual()
		b.session.Open(t.Symbol, a.LastPrice, a.LastTime)
	}
	delete(b.loadErr, models.SourceActual)
	b.touch()
	return nil
}

func (b *Board) failLoad(src models.Source, err error) {
	b.loadErr[src] = err.Error()
	b.touch()
}

func (b *Board) touch() { b.updatedAt = b.now() }

func (b *Board) view() View {
	v := View{
		ID:        b.ID,
		Symbol:    b.symbol(),
		State:     b.session.State(),
		Ticket:    b.store.Ticket(),
		BasePrice: b.session.BasePrice(),
		BaseTime:  b.session.BaseTime(),
		Slots:     b.session.Slots(),
		Sources: map[models.Source]bool{
			models.SourceActual: b.store.Has(models.SourceActual),
			models.SourceAI:     b.store.Has(models.SourceAI),
			models.SourceUser:   b.store.Has(models.SourceUser),
		},
		Timeline:  b.store.Timeline(),
		Report:    b.store.Report(),
		UpdatedAt: b.updatedAt,
	}
	v.Winner = v.Report.Winner()
	if snap, ok := b.session.Submitted(); ok {
		v.Submitted = &snap
	}
	if len(b.loadErr) > 0 {
		v.Errors = make(map[models.Source]string, len(b.loadErr))
		for k, e := range b.loadErr {
			v.Errors[k] = e
		}
	}
	return v
}

// subscribe registers a listener for views published after each change.
// The channel keeps only the newest pending view.
func (b *Board) subscribe() (<-chan View, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	ch := make(chan View, 1)
	b.subs[id] = ch
	ch <- b.view()
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// publish must be called with b.mu held.
func (b *Board) publish() {
	if len(b.subs) == 0 {
		return
	}
	v := b.view()
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// close cancels pending loads and disconnects subscribers.
func (b *Board) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
