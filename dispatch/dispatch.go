// Package dispatch schedules extraction work through an admission gate.
//
// The dispatcher owns the gate and guarantees the pairing discipline the
// gate requires: one release per admission, on every exit path, including
// task panics. Shutdown stops intake and waits for in-flight work to drain.
package dispatch

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/wudi/extractkit/extract"
	"github.com/wudi/extractkit/gate"
	"github.com/wudi/extractkit/observability"
)

// ErrShuttingDown is returned by Submit after Shutdown has been called.
var ErrShuttingDown = errors.New("dispatch: dispatcher is shutting down")

// Task is a unit of work executed under an admission slot.
type Task func(ctx context.Context) error

// Config controls dispatcher behavior.
type Config struct {
	// Concurrency is the maximum number of tasks in flight. Defaults to
	// the number of usable CPUs.
	Concurrency int

	// RateLimit caps task starts per second. Zero means unlimited.
	RateLimit rate.Limit
	// RateBurst is the limiter burst size. Defaults to Concurrency when
	// RateLimit is set.
	RateBurst int

	Logger observability.Logger

	// GateWaitTime observes seconds spent waiting for an admission slot.
	GateWaitTime observability.Observer
	// GateActive observes the in-flight task count after each admission.
	GateActive observability.Observer
}

// Dispatcher runs tasks under a shared admission gate.
type Dispatcher struct {
	gate     *gate.Gate
	engine   *extract.Engine
	limiter  *rate.Limiter
	logger   observability.Logger
	waitTime observability.Observer
	active   observability.Observer
	closed   atomic.Bool
}

// New builds a dispatcher around engine. A nil engine is allowed when only
// Submit is used.
func New(engine *extract.Engine, cfg Config) (*Dispatcher, error) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	g, err := gate.New(cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.GateWaitTime == nil {
		cfg.GateWaitTime = observability.NopObserver()
	}
	if cfg.GateActive == nil {
		cfg.GateActive = observability.NopObserver()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = cfg.Concurrency
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Dispatcher{
		gate:     g,
		engine:   engine,
		limiter:  limiter,
		logger:   cfg.Logger,
		waitTime: cfg.GateWaitTime,
		active:   cfg.GateActive,
	}, nil
}

// Concurrency returns the admission capacity.
func (d *Dispatcher) Concurrency() int { return d.gate.Capacity() }

// InFlight returns the number of tasks currently holding a slot.
func (d *Dispatcher) InFlight() int { return d.gate.ActiveCount() }

// Busy reports whether all slots were taken at the moment of the call.
// It is a scheduling hint only; a false result does not reserve a slot.
func (d *Dispatcher) Busy() bool { return !d.gate.CanAdmit() }

// Submit runs task under an admission slot, blocking until one is free or
// ctx is done. The slot is released when the task returns, even on panic.
func (d *Dispatcher) Submit(ctx context.Context, task Task) error {
	if d.closed.Load() {
		return ErrShuttingDown
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := d.gate.Acquire(ctx); err != nil {
		return err
	}
	// Shutdown may have raced us between the closed check and the
	// acquire; re-check so no task starts after AwaitDrain returned.
	if d.closed.Load() {
		d.gate.Release()
		return ErrShuttingDown
	}
	d.waitTime.Observe(time.Since(start).Seconds())
	d.active.Observe(float64(d.gate.ActiveCount()))
	defer d.gate.Release()

	return task(ctx)
}

// TrySubmit runs task only if a slot is immediately available. It returns
// false without running the task when the dispatcher is at capacity,
// letting the caller defer or queue instead of blocking.
func (d *Dispatcher) TrySubmit(ctx context.Context, task Task) (bool, error) {
	if d.closed.Load() {
		return false, ErrShuttingDown
	}
	if !d.gate.TryAdmit() {
		return false, nil
	}
	if d.closed.Load() {
		d.gate.Release()
		return false, ErrShuttingDown
	}
	d.active.Observe(float64(d.gate.ActiveCount()))
	defer d.gate.Release()

	return true, task(ctx)
}

// ExtractFile extracts one file through the engine under an admission slot.
func (d *Dispatcher) ExtractFile(ctx context.Context, path string) (extract.Result, error) {
	var res extract.Result
	err := d.Submit(ctx, func(ctx context.Context) error {
		var err error
		res, err = d.engine.ExtractFile(ctx, path)
		return err
	})
	return res, err
}

// ExtractBytes extracts raw document bytes under an admission slot.
func (d *Dispatcher) ExtractBytes(ctx context.Context, data []byte, mimeType string) (extract.Result, error) {
	var res extract.Result
	err := d.Submit(ctx, func(ctx context.Context) error {
		var err error
		res, err = d.engine.ExtractBytes(ctx, data, mimeType)
		return err
	})
	return res, err
}

// FileResult pairs one input path with its extraction outcome.
type FileResult struct {
	Path   string
	Result extract.Result
	Err    error
}

// ExtractFiles extracts paths concurrently, each under its own admission
// slot, and returns results in input order. The first context error stops
// admission of the remaining files; already-admitted work still completes.
func (d *Dispatcher) ExtractFiles(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))

	var wg conc.WaitGroup
	for i, path := range paths {
		i, path := i, path
		wg.Go(func() {
			res, err := d.ExtractFile(ctx, path)
			results[i] = FileResult{Path: path, Result: res, Err: err}
		})
	}
	wg.Wait()

	return results
}

// Shutdown stops accepting new work and blocks until every admitted task
// has released its slot, or ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.closed.Store(true)
	d.logger.Info("dispatcher draining",
		observability.Int("in_flight", d.gate.ActiveCount()))
	if err := d.gate.AwaitDrain(ctx); err != nil {
		return err
	}
	d.logger.Info("dispatcher drained")
	return nil
}
