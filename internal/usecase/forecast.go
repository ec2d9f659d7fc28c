package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	domsvc "FinRisk/internal/domain/service"
	"FinRisk/internal/services/forecast"
	"FinRisk/pkg/cache"
	"FinRisk/pkg/id"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"

	"github.com/shopspring/decimal"
)

// Options tune ForecastUseCase.
type Options struct {
	// Step is the spacing of submitted forecast points. Zero infers it from
	// the two latest actual candles.
	Step time.Duration
	// OpenWait bounds how long open and reload block on initial loads.
	OpenWait time.Duration
	// FetchTimeout bounds each background load.
	FetchTimeout time.Duration
	AICacheTTL   time.Duration
}

// ForecastUseCase drives boards: loading the three sources, routing edits
// into the session and delivering submissions.
type ForecastUseCase struct {
	market  domsvc.MarketData
	ai      domsvc.AIForecaster
	sink    domsvc.PredictionSink
	subs    domrepo.SubmissionStore
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	aiCache cache.Service
	boards  *BoardRegistry
	opts    Options
	log     *applogger.Logger
	now     func() time.Time
}

func NewForecastUseCase(
	market domsvc.MarketData,
	ai domsvc.AIForecaster,
	sink domsvc.PredictionSink,
	subs domrepo.SubmissionStore,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	aiCache cache.Service,
	boards *BoardRegistry,
	opts Options,
	log *applogger.Logger,
) *ForecastUseCase {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &ForecastUseCase{
		market:  market,
		ai:      ai,
		sink:    sink,
		subs:    subs,
		events:  events,
		metrics: metrics,
		aiCache: aiCache,
		boards:  boards,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// Open creates a board for symbol and loads its sources.
func (u *ForecastUseCase) Open(ctx context.Context, symbol string) (View, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return View{}, ErrInvalidSymbol
	}
	b := u.boards.Create()
	u.log.Info("board.open", applogger.String("board", b.ID), applogger.String("symbol", symbol))
	return u.load(ctx, b, symbol), nil
}

// ChangeSymbol resets the board onto another symbol.
func (u *ForecastUseCase) ChangeSymbol(ctx context.Context, boardID, symbol string) (View, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return View{}, ErrInvalidSymbol
	}
	b, err := u.boards.Get(boardID)
	if err != nil {
		return View{}, err
	}
	return u.load(ctx, b, symbol), nil
}

// Reload resets the board and fetches its symbol again.
func (u *ForecastUseCase) Reload(ctx context.Context, boardID string) (View, error) {
	b, err := u.boards.Get(boardID)
	if err != nil {
		return View{}, err
	}
	b.mu.Lock()
	symbol := b.symbol()
	b.mu.Unlock()
	if symbol == "" {
		return View{}, forecast.ErrNoSession
	}
	return u.load(ctx, b, symbol), nil
}

func (u *ForecastUseCase) Close(boardID string) error {
	return u.boards.Remove(boardID)
}

// load resets b onto symbol and fetches actual, AI and stored user series
// concurrently. It waits up to OpenWait; later arrivals are applied if the
// board is still on the same ticket.
func (u *ForecastUseCase) load(ctx context.Context, b *Board, symbol string) View {
	fetchCtx, cancel := context.WithTimeout(context.Background(), u.opts.FetchTimeout)

	b.mu.Lock()
	t := b.reset(symbol, cancel)
	b.publish()
	b.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a, err := u.fetchActual(fetchCtx, symbol)
		u.apply(b, t, models.SourceActual, err, func() error { return b.applyActual(t, a) })
	}()
	go func() {
		defer wg.Done()
		a, err := u.fetchAI(fetchCtx, symbol)
		u.apply(b, t, models.SourceAI, err, func() error { return b.applyAI(t, a) })
	}()
	go func() {
		defer wg.Done()
		us, err := u.fetchUser(fetchCtx, symbol)
		if us == nil && err == nil {
			return
		}
		u.apply(b, t, models.SourceUser, err, func() error { return b.applyUser(t, us) })
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		cancel()
		close(done)
	}()

	wait := time.NewTimer(u.opts.OpenWait)
	defer wait.Stop()
	select {
	case <-done:
	case <-wait.C:
		u.log.Debug("board.load still pending", applogger.String("board", b.ID), applogger.String("symbol", symbol))
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view()
}

// apply runs fn under the board lock if t is still current, recording
// fetch failures for the board and dropping stale results.
func (u *ForecastUseCase) apply(b *Board, t forecast.Ticket, src models.Source, fetchErr error, fn func() error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.current(t) {
		u.metrics.RecordStaleDrop(string(src))
		u.log.Debug("board.apply stale_dropped",
			applogger.String("board", b.ID),
			applogger.String("source", string(src)),
			applogger.String("symbol", t.Symbol),
		)
		return
	}
	if fetchErr != nil {
		u.metrics.RecordError("fetch_" + string(src))
		u.log.Warn("board.load failed",
			applogger.String("board", b.ID),
			applogger.String("source", string(src)),
			applogger.String("symbol", t.Symbol),
			applogger.Error(fetchErr),
		)
		b.failLoad(src, fetchErr)
		b.publish()
		return
	}
	if err := fn(); err != nil {
		if errors.Is(err, forecast.ErrStaleResult) {
			u.metrics.RecordStaleDrop(string(src))
			u.log.Debug("board.apply stale_dropped", applogger.String("board", b.ID), applogger.Error(err))
			return
		}
		u.log.Error("board.apply failed", applogger.String("board", b.ID), applogger.Error(err))
		return
	}
	u.recordAccuracy(t.Symbol, b.store.Report())
	b.publish()
}

func (u *ForecastUseCase) fetchActual(ctx context.Context, symbol string) (*models.ActualSeries, error) {
	start := time.Now()
	defer func() { u.metrics.RecordLatency("fetch_actual", time.Since(start).Seconds()) }()
	return u.market.Hourly(ctx, symbol)
}

// fetchAI serves the AI forecast through the cache; it changes far less
// often than boards are opened.
func (u *ForecastUseCase) fetchAI(ctx context.Context, symbol string) (*models.AISeries, error) {
	start := time.Now()
	defer func() { u.metrics.RecordLatency("fetch_ai", time.Since(start).Seconds()) }()
	if u.aiCache == nil || u.opts.AICacheTTL <= 0 {
		return u.ai.Forecast(ctx, symbol)
	}
	return cache.GetOrLoad(ctx, u.aiCache, cache.GenerateKey("ai", symbol), u.opts.AICacheTTL,
		func(ctx context.Context) (*models.AISeries, error) { return u.ai.Forecast(ctx, symbol) })
}

// fetchUser loads the stored submission. A missing one is not an error.
func (u *ForecastUseCase) fetchUser(ctx context.Context, symbol string) (*models.UserSeries, error) {
	sub, err := u.subs.Latest(ctx, symbol)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	us := sub.UserSeries()
	us.Symbol = symbol
	return us, nil
}

// Edit sets one field of one slot. An empty value clears the field.
func (u *ForecastUseCase) Edit(_ context.Context, boardID string, index int, field, value string) (View, error) {
	f, err := forecast.ParseField(field)
	if err != nil {
		return View{}, err
	}
	v, err := parseValue(value)
	if err != nil {
		return View{}, err
	}
	return u.mutate(boardID, func(b *Board) error { return b.session.ApplyEdit(index, f, v) })
}

// SaveSlot validates and saves one slot. On a validation failure the
// returned view carries the slot's error.
func (u *ForecastUseCase) SaveSlot(_ context.Context, boardID string, index int) (View, error) {
	v, err := u.mutate(boardID, func(b *Board) error { return b.session.SaveSlot(index) })
	if err != nil {
		u.recordValidation(err)
	}
	return v, err
}

// Submit snapshots a fully saved session and delivers it: analytics first,
// then storage, then the event stream. The session only moves to submitted
// once analytics and storage accepted it.
func (u *ForecastUseCase) Submit(ctx context.Context, boardID string) (View, error) {
	b, err := u.boards.Get(boardID)
	if err != nil {
		return View{}, err
	}
	start := time.Now()
	defer func() { u.metrics.RecordLatency("submit", time.Since(start).Seconds()) }()

	b.mu.Lock()
	defer b.mu.Unlock()

	staged := b.session.Clone()
	snap, err := staged.Submit()
	if err != nil {
		u.recordValidation(err)
		return b.view(), err
	}

	sub := &models.Submission{
		ID:          id.New(snap.SubmittedAt),
		Symbol:      snap.Symbol,
		CreatedAt:   snap.SubmittedAt,
		BasePrice:   snap.BasePrice,
		BaseTime:    snap.BaseTime,
		Step:        u.stepFor(b.store.Actual()),
		Predictions: snap.Points(),
	}
	if err := u.sink.SubmitPrediction(ctx, sub.Symbol, snap.Candles); err != nil {
		u.metrics.RecordError("submit_sink")
		u.log.Error("forecast.submit sink_failed", applogger.String("board", b.ID), applogger.String("symbol", sub.Symbol), applogger.Error(err))
		return b.view(), fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if err := u.subs.Save(ctx, sub); err != nil {
		u.metrics.RecordError("submit_store")
		u.log.Error("forecast.submit store_failed", applogger.String("board", b.ID), applogger.String("symbol", sub.Symbol), applogger.Error(err))
		return b.view(), fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if err := u.events.PublishSubmission(ctx, sub); err != nil {
		u.metrics.RecordError("submit_publish")
		u.log.Warn("forecast.submit publish_failed", applogger.String("symbol", sub.Symbol), applogger.Error(err))
	}

	b.session = staged
	t := b.store.Ticket()
	if err := b.store.SetUser(t, sub.UserSeries()); err != nil {
		u.log.Warn("forecast.submit user_series_rejected", applogger.String("board", b.ID), applogger.Error(err))
	}
	b.touch()
	u.metrics.RecordSubmission(sub.Symbol)
	u.recordAccuracy(sub.Symbol, b.store.Report())
	u.log.Info("forecast.submit ok",
		applogger.String("board", b.ID),
		applogger.String("symbol", sub.Symbol),
		applogger.String("id", sub.ID),
	)
	b.publish()
	return b.view(), nil
}

// View returns the board's current snapshot.
func (u *ForecastUseCase) View(boardID string) (View, error) {
	b, err := u.boards.Get(boardID)
	if err != nil {
		return View{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view(), nil
}

// Comparison is the scoreboard for a board.
type Comparison struct {
	Symbol   string                 `json:"symbol"`
	Timeline []models.TimelineEntry `json:"timeline"`
	Report   models.AccuracyReport  `json:"report"`
	Winner   string                 `json:"winner"`
}

func (u *ForecastUseCase) Comparison(boardID string) (Comparison, error) {
	v, err := u.View(boardID)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Symbol: v.Symbol, Timeline: v.Timeline, Report: v.Report, Winner: v.Winner}, nil
}

// Subscribe streams views of the board after every change.
func (u *ForecastUseCase) Subscribe(boardID string) (<-chan View, func(), error) {
	b, err := u.boards.Get(boardID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := b.subscribe()
	return ch, cancel, nil
}

// RefreshActual re-fetches the actual series once per symbol with an open
// board and applies it to each such board without resetting sessions.
func (u *ForecastUseCase) RefreshActual(ctx context.Context) error {
	bySymbol := make(map[string][]ticketed)
	for _, b := range u.boards.Active() {
		b.mu.Lock()
		t := b.store.Ticket()
		b.mu.Unlock()
		if t.Symbol != "" {
			bySymbol[t.Symbol] = append(bySymbol[t.Symbol], ticketed{b: b, t: t})
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for symbol, targets := range bySymbol {
		wg.Add(1)
		go func(symbol string, targets []ticketed) {
			defer wg.Done()
			a, err := u.fetchActual(ctx, symbol)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("refresh %s: %w", symbol, err))
				mu.Unlock()
			}
			for _, tb := range targets {
				u.apply(tb.b, tb.t, models.SourceActual, err, func() error { return tb.b.applyActual(tb.t, a) })
			}
		}(symbol, targets)
	}
	wg.Wait()
	if n := u.boards.Sweep(); n > 0 {
		u.log.Info("board.sweep", applogger.Int("expired", n))
	}
	return errors.Join(errs...)
}

// ApplyActualCandle upserts a pushed candle into every board on its symbol.
func (u *ForecastUseCase) ApplyActualCandle(symbol string, c models.Candle) int {
	symbol = util.NormalizeSymbol(symbol)
	applied := 0
	for _, b := range u.boards.Active() {
		b.mu.Lock()
		t := b.store.Ticket()
		if t.Symbol == symbol {
			if err := b.upsertActual(t, c); err == nil {
				applied++
				u.recordAccuracy(symbol, b.store.Report())
				b.publish()
			}
		}
		b.mu.Unlock()
	}
	return applied
}

type ticketed struct {
	b *Board
	t forecast.Ticket
}

func (u *ForecastUseCase) mutate(boardID string, fn func(*Board) error) (View, error) {
	b, err := u.boards.Get(boardID)
	if err != nil {
		return View{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	err = fn(b)
	b.touch()
	b.publish()
	return b.view(), err
}

// stepFor prefers the configured step; market hours leave overnight and
// weekend gaps between the latest candles.
func (u *ForecastUseCase) stepFor(actual *models.ActualSeries) time.Duration {
	if u.opts.Step > 0 {
		return u.opts.Step
	}
	return forecast.InferStep(actual)
}

func (u *ForecastUseCase) recordAccuracy(symbol string, r models.AccuracyReport) {
	if r.UserMAE != nil {
		u.metrics.RecordAccuracy(symbol, string(models.SourceUser), *r.UserMAE)
	}
	if r.AIMAE != nil {
		u.metrics.RecordAccuracy(symbol, string(models.SourceAI), *r.AIMAE)
	}
}

func (u *ForecastUseCase) recordValidation(err error) {
	var se *forecast.SessionError
	if errors.As(err, &se) {
		for _, ve := range se.Slots {
			u.metrics.RecordValidationFailure(validationKind(ve.Err))
		}
		return
	}
	u.metrics.RecordValidationFailure(validationKind(err))
}

func validationKind(err error) string {
	switch {
	case errors.Is(err, forecast.ErrIncomplete):
		return "incomplete"
	case errors.Is(err, forecast.ErrInconsistentBounds):
		return "inconsistent_bounds"
	case errors.Is(err, forecast.ErrUnsaved):
		return "unsaved"
	default:
		return "other"
	}
}

// parseValue reads a decimal form value; empty means clear.
func parseValue(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	f := d.InexactFloat64()
	return &f, nil
}
