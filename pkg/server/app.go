package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	applogger "FinRisk/pkg/logger"
)

// Component is anything with a background lifecycle: the HTTP server,
// consumers, schedulers.
type Component interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedComponent struct {
	name string
	c    Component
}

// App starts components in order and stops them in reverse.
type App struct {
	log             *applogger.Logger
	shutdownTimeout time.Duration
	components      []namedComponent
	signals         []os.Signal
}

// New creates an App. Components are added with Add.
func New(log *applogger.Logger, shutdownTimeout time.Duration) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{
		log:             log,
		shutdownTimeout: shutdownTimeout,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Add registers a component. Nil components are skipped so optional
// infrastructure can be passed through unconditionally.
func (a *App) Add(name string, c Component) *App {
	if c == nil || isNilComponent(c) {
		return a
	}
	a.components = append(a.components, namedComponent{name: name, c: c})
	return a
}

// Run starts everything and blocks until ctx is done or a shutdown signal
// arrives. If a component fails to start, the ones already running are
// stopped before returning.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	started := 0
	var startErr error
	for _, nc := range a.components {
		if err := nc.c.Start(); err != nil {
			startErr = fmt.Errorf("start %s: %w", nc.name, err)
			break
		}
		a.log.Info("component started", applogger.String("component", nc.name))
		started++
	}

	if startErr == nil {
		<-ctx.Done()
		a.log.Info("shutdown signal received")
	} else {
		a.log.Error("startup failed", applogger.Error(startErr))
	}

	return errors.Join(startErr, a.shutdown(started))
}

func (a *App) shutdown(started int) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := started - 1; i >= 0; i-- {
		nc := a.components[i]
		if err := nc.c.Stop(ctx); err != nil {
			a.log.Warn("component stop failed", applogger.String("component", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", nc.name, err))
			continue
		}
		a.log.Info("component stopped", applogger.String("component", nc.name))
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

// isNilComponent catches typed nil pointers wrapped in the interface.
func isNilComponent(c Component) bool {
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
