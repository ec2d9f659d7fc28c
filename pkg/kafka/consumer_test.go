package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	applogger "FinRisk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failures int
	calls    int
	err      error
	panics   bool
}

func (h *flakyHandler) Topic() string { return "candles.actual" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panics {
		panic("bad payload")
	}
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func testConsumer(t *testing.T) *Consumer {
	t.Helper()
	c, err := NewConsumer(applogger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := testConsumer(t)
	h := &flakyHandler{failures: 2, err: errors.New("transient")}
	require.NoError(t, c.process(context.Background(), h, nil))
	assert.Equal(t, 3, h.calls)
}

func TestProcessGivesUp(t *testing.T) {
	c := testConsumer(t)
	h := &flakyHandler{failures: 10, err: errors.New("down")}
	assert.Error(t, c.process(context.Background(), h, nil))
	assert.Equal(t, 3, h.calls)
}

func TestProcessPermanentErrorIsNotRetried(t *testing.T) {
	c := testConsumer(t)
	h := &flakyHandler{failures: 10, err: fmt.Errorf("decode: %w", ErrPermanent)}
	assert.ErrorIs(t, c.process(context.Background(), h, nil), ErrPermanent)
	assert.Equal(t, 1, h.calls)
}

func TestProcessRecoversPanics(t *testing.T) {
	c := testConsumer(t)
	h := &flakyHandler{panics: true}
	err := c.process(context.Background(), h, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(applogger.Nop())
	assert.Error(t, err)
}
