package usecase

import (
	"strconv"
	"testing"
	"time"

	pkgkafka "FinRisk/pkg/kafka"
	applogger "FinRisk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActualCandlesHandler(t *testing.T) {
	f := newFixture()
	v, _ := f.uc.Open(ctx, "AAPL")
	h := NewActualCandlesHandler("candles.actual", f.uc, f.metrics, applogger.Nop())
	assert.Equal(t, "candles.actual", h.Topic())

	msg := `{"symbol":"aapl","time":"2024-03-01 11:00","open":100,"high":103,"low":99,"close":102.5}`
	require.NoError(t, h.Handle(ctx, []byte(msg)))

	view, err := f.uc.View(v.ID)
	require.NoError(t, err)
	last := view.Timeline[len(view.Timeline)-1]
	assert.Equal(t, baseTime.Add(time.Hour), last.Time)
	require.NotNil(t, last.Actual)
	assert.Equal(t, 102.5, *last.Actual)
}

func TestActualCandlesHandler_UnixMillis(t *testing.T) {
	f := newFixture()
	v, _ := f.uc.Open(ctx, "AAPL")
	h := NewActualCandlesHandler("candles.actual", f.uc, f.metrics, applogger.Nop())

	ms := strconv.FormatInt(baseTime.Add(time.Hour).UnixMilli(), 10)
	msg := []byte(`{"symbol":"AAPL","time":` + ms + `,"open":1,"high":2,"low":0.5,"close":1.5}`)
	require.NoError(t, h.Handle(ctx, msg))

	view, err := f.uc.View(v.ID)
	require.NoError(t, err)
	last := view.Timeline[len(view.Timeline)-1]
	assert.Equal(t, baseTime.Add(time.Hour), last.Time)
	require.NotNil(t, last.Actual)
	assert.Equal(t, 1.5, *last.Actual)
}

func TestActualCandlesHandler_PermanentErrors(t *testing.T) {
	f := newFixture()
	h := NewActualCandlesHandler("candles.actual", f.uc, f.metrics, applogger.Nop())

	for name, msg := range map[string]string{
		"bad json":  `{"symbol":`,
		"no symbol": `{"time":"2024-03-01 11:00","close":1}`,
		"bad time":  `{"symbol":"AAPL","time":"yesterday","close":1}`,
		"no time":   `{"symbol":"AAPL","close":1}`,
	} {
		err := h.Handle(ctx, []byte(msg))
		assert.ErrorIs(t, err, pkgkafka.ErrPermanent, name)
	}
	assert.Equal(t, 1, f.metrics.errors["consumer_unmarshal"])
}

func TestParseMessageTime(t *testing.T) {
	ts, ok := parseMessageTime([]byte(`1709290800000`))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), ts)

	ts, ok = parseMessageTime([]byte(`1709290800`))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), ts)
}
