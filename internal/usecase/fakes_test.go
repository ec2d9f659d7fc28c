package usecase

import (
	"context"
	"sync"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func actualFor(symbol string, closes ...float64) *models.ActualSeries {
	a := &models.ActualSeries{Symbol: symbol}
	for i, c := range closes {
		a.Candles = append(a.Candles, models.Candle{
			Time: baseTime.Add(time.Duration(i-len(closes)+1) * time.Hour),
			OHLC: models.OHLC{Open: c, High: c + 1, Low: c - 1, Close: c},
		})
	}
	last := a.Candles[len(a.Candles)-1]
	a.LastPrice, a.LastTime = last.Close, last.Time
	return a
}

type fakeMarket struct {
	mu     sync.Mutex
	series map[string]*models.ActualSeries
	gates  map[string]chan struct{}
	err    error
	calls  int
}

func (f *fakeMarket) Hourly(_ context.Context, symbol string) (*models.ActualSeries, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[symbol]
	s, err := f.series[symbol], f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

type fakeAI struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAI) Forecast(_ context.Context, symbol string) (*models.AISeries, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &models.AISeries{Symbol: symbol, Points: []models.AIForecastPoint{
		{Time: baseTime.Add(time.Hour), Step: 1, OHLC: models.OHLC{Open: 100, High: 102, Low: 99, Close: 101}},
	}}, nil
}

type fakeSink struct {
	mu    sync.Mutex
	got   [][]models.OHLC
	err   error
	calls int
}

func (f *fakeSink) SubmitPrediction(_ context.Context, _ string, candles []models.OHLC) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, candles)
	return nil
}

type fakeStore struct {
	mu   sync.Mutex
	subs map[string]*models.Submission
}

func newFakeStore() *fakeStore { return &fakeStore{subs: make(map[string]*models.Submission)} }

func (f *fakeStore) Init(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) Save(_ context.Context, s *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[s.Symbol] = s
	return nil
}

func (f *fakeStore) Latest(_ context.Context, symbol string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[symbol]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return s, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []*models.Submission
}

func (f *fakeEvents) PublishSubmission(_ context.Context, s *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, s)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

type fakeMetrics struct {
	mu          sync.Mutex
	submissions int
	validation  map[string]int
	stale       map[string]int
	errors      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{validation: map[string]int{}, stale: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordSubmission(string) {
	m.mu.Lock()
	m.submissions++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordValidationFailure(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordStaleDrop(source string) {
	m.mu.Lock()
	m.stale[source]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) staleDrops(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale[source]
}

func (m *fakeMetrics) RecordAccuracy(string, string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)          {}

type fixture struct {
	uc      *ForecastUseCase
	market  *fakeMarket
	ai      *fakeAI
	sink    *fakeSink
	store   *fakeStore
	events  *fakeEvents
	metrics *fakeMetrics
}

func newFixture() *fixture {
	f := &fixture{
		market: &fakeMarket{
			series: map[string]*models.ActualSeries{
				"AAPL": actualFor("AAPL", 98, 99, 100),
				"MSFT": actualFor("MSFT", 300, 305),
			},
			gates: map[string]chan struct{}{},
		},
		ai:      &fakeAI{},
		sink:    &fakeSink{},
		store:   newFakeStore(),
		events:  &fakeEvents{},
		metrics: newFakeMetrics(),
	}
	f.uc = NewForecastUseCase(f.market, f.ai, f.sink, f.store, f.events, f.metrics, nil,
		NewBoardRegistry(5, time.Hour),
		Options{Step: time.Hour, OpenWait: time.Second, FetchTimeout: 5 * time.Second},
		applogger.Nop(),
	)
	return f
}

var _ domrepo.Metrics = (*fakeMetrics)(nil)
