package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

func TestSeriesStoreRecomputesOnUpdate(t *testing.T) {
	s := NewSeriesStore()
	tk := s.Reset("AAPL")

	require.NoError(t, s.SetActual(tk, actualSeries(100, 101, 102)))
	assert.Len(t, s.Timeline(), 3)
	assert.Nil(t, s.Report().AIMAE)

	ai := &models.AISeries{Symbol: "AAPL", Points: []models.AIForecastPoint{{Time: hour(2), OHLC: models.OHLC{Close: 103}}}}
	require.NoError(t, s.SetAI(tk, ai))
	require.NotNil(t, s.Report().AIMAE)
	assert.InDelta(t, 1.0, *s.Report().AIMAE, 1e-9)
	assert.True(t, s.Has(models.SourceAI))
	assert.False(t, s.Has(models.SourceUser))
}

func TestSeriesStoreDiscardsStaleResults(t *testing.T) {
	s := NewSeriesStore()
	old := s.Reset("AAPL")
	cur := s.Reset("MSFT")

	err := s.SetActual(old, actualSeries(1, 2))
	assert.ErrorIs(t, err, ErrStaleResult)
	assert.Empty(t, s.Timeline())

	wrong := actualSeries(1)
	err = s.SetActual(cur, wrong)
	assert.ErrorIs(t, err, ErrStaleResult, "series symbol must match session")

	msft := actualSeries(300)
	msft.Symbol = "MSFT"
	require.NoError(t, s.SetActual(cur, msft))
	assert.Len(t, s.Timeline(), 1)
}

func TestSeriesStoreSameSymbolNewEpoch(t *testing.T) {
	s := NewSeriesStore()
	first := s.Reset("AAPL")
	second := s.Reset("AAPL")
	assert.NotEqual(t, first, second)
	assert.ErrorIs(t, s.SetAI(first, &models.AISeries{Symbol: "AAPL"}), ErrStaleResult)
}

func TestSeriesStoreEmptyRejectsAll(t *testing.T) {
	s := NewSeriesStore()
	assert.ErrorIs(t, s.SetUser(s.Ticket(), nil), ErrStaleResult)
}

func TestUpsertActual(t *testing.T) {
	s := NewSeriesStore()
	tk := s.Reset("AAPL")
	require.NoError(t, s.SetActual(tk, actualSeries(100, 101)))

	require.NoError(t, s.UpsertActual(tk,
		models.Candle{Time: hour(1), OHLC: models.OHLC{Close: 101.7}},
		models.Candle{Time: hour(2), OHLC: models.OHLC{Close: 102}},
	))
	a := s.Actual()
	require.Len(t, a.Candles, 3)
	assert.Equal(t, 101.7, a.Candles[1].Close)
	assert.Equal(t, 102.0, a.LastPrice)
	assert.Equal(t, hour(2), a.LastTime)
	assert.Len(t, s.Timeline(), 3)
}
