package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	applogger "FinRisk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error
}

func (f *fakeComponent) Start() error {
	f.rec.add("start " + f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	f.rec.add("stop " + f.name)
	return f.stopErr
}

func TestRunStopsInReverseOrder(t *testing.T) {
	rec := &recorder{}
	app := New(applogger.Nop(), time.Second).
		Add("http", &fakeComponent{name: "http", rec: rec}).
		Add("consumer", &fakeComponent{name: "consumer", rec: rec})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.list()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"start http", "start consumer", "stop consumer", "stop http"}, rec.list())
}

func TestRunUnwindsOnStartFailure(t *testing.T) {
	rec := &recorder{}
	app := New(applogger.Nop(), time.Second).
		Add("http", &fakeComponent{name: "http", rec: rec}).
		Add("consumer", &fakeComponent{name: "consumer", rec: rec, startErr: errors.New("no brokers")}).
		Add("cron", &fakeComponent{name: "cron", rec: rec})

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start consumer")
	assert.Equal(t, []string{"start http", "start consumer", "stop http"}, rec.list())
}

func TestAddSkipsNil(t *testing.T) {
	var missing *fakeComponent
	app := New(applogger.Nop(), 0).Add("nil", nil).Add("typed nil", missing)
	assert.Empty(t, app.components)
}

func TestStopErrorsAreReported(t *testing.T) {
	rec := &recorder{}
	app := New(applogger.Nop(), time.Second).
		Add("http", &fakeComponent{name: "http", rec: rec, stopErr: errors.New("busy")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := app.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop http")
}
