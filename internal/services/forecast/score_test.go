package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

func TestScoreMAE(t *testing.T) {
	actual := actualSeries(100, 101, 102)
	user := &models.UserSeries{Anchor: hour(0), Step: time.Hour, Points: []models.UserForecastPoint{
		{Index: 1, OHLC: models.OHLC{Close: 100.5}},
		{Index: 2, OHLC: models.OHLC{Close: 101.5}},
	}}
	ai := &models.AISeries{Points: []models.AIForecastPoint{
		{Time: hour(0), OHLC: models.OHLC{Close: 99}},
		{Time: hour(2), OHLC: models.OHLC{Close: 104}},
	}}

	rep := Score(Merge(actual, ai, user))
	require.NotNil(t, rep.UserMAE)
	require.NotNil(t, rep.AIMAE)
	assert.InDelta(t, 0.5, *rep.UserMAE, 1e-9)
	assert.InDelta(t, 1.5, *rep.AIMAE, 1e-9)
	assert.Equal(t, 2, rep.UserSamples)
	assert.Equal(t, 2, rep.AISamples)
	assert.Equal(t, 3, rep.SampleCount)
	assert.Equal(t, "user", rep.Winner())
}

func TestScoreNoOverlap(t *testing.T) {
	ai := &models.AISeries{Points: []models.AIForecastPoint{{Time: hour(5), OHLC: models.OHLC{Close: 1}}}}
	rep := Score(Merge(actualSeries(100), ai, nil))
	assert.Nil(t, rep.UserMAE)
	assert.Nil(t, rep.AIMAE)
	assert.Zero(t, rep.SampleCount)
	assert.Empty(t, rep.Winner())
}

func TestScoreIgnoresEntriesWithoutActual(t *testing.T) {
	entries := []models.TimelineEntry{
		{Time: hour(0), UserClose: models.Float(5), AIClose: models.Float(6)},
		{Time: hour(1), Actual: models.Float(10), UserClose: models.Float(12)},
	}
	rep := Score(entries)
	assert.InDelta(t, 2.0, *rep.UserMAE, 1e-9)
	assert.Nil(t, rep.AIMAE)
	assert.Equal(t, 1, rep.SampleCount)
}

func TestWinnerTie(t *testing.T) {
	rep := models.AccuracyReport{UserMAE: models.Float(1), AIMAE: models.Float(1)}
	assert.Equal(t, "tie", rep.Winner())
}
