package server

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/observability"
)

// DefaultMaxCatchUp is the most steps a Loop runs on one wakeup.
const DefaultMaxCatchUp = 5

// ErrLoopRunning is returned by a second Start.
var ErrLoopRunning = errors.New("server: loop already started")

// Stepper advances a simulation by one fixed step.
type Stepper interface {
	Tick(dt time.Duration)
}

// Loop drives a Stepper at a fixed rate from a single goroutine. Wall time
// is accumulated and consumed in whole steps, so a late wakeup runs several
// steps; backlog beyond MaxCatchUp steps is discarded.
//
// Invariant: every Tick receives exactly the configured step.
type Loop struct {
	step       time.Duration
	target     Stepper
	metrics    *observability.Metrics
	logger     *zap.Logger
	MaxCatchUp int

	ticks   atomic.Uint64
	skipped atomic.Uint64
	started atomic.Bool
	stop    chan struct{}
	exited  chan struct{}
	once    sync.Once
}

// NewLoop returns a loop stepping target every step.
//
// Precondition: step > 0; target and logger must not be nil. metrics may be
// nil.
func NewLoop(step time.Duration, target Stepper, metrics *observability.Metrics, logger *zap.Logger) *Loop {
	if step <= 0 {
		panic("server.NewLoop: step must be > 0")
	}
	if target == nil || logger == nil {
		panic("server.NewLoop: missing dependency")
	}
	return &Loop{
		step:       step,
		target:     target,
		metrics:    metrics,
		logger:     logger,
		MaxCatchUp: DefaultMaxCatchUp,
		stop:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
}

// Start implements Service. It blocks until Stop.
func (l *Loop) Start() error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer close(l.exited)
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()
	l.logger.Info("simulation loop running", zap.Duration("step", l.step))

	last := time.Now()
	var backlog time.Duration
	for {
		select {
		case <-l.stop:
			l.logger.Info("simulation loop stopped", zap.Uint64("ticks", l.ticks.Load()))
			return nil
		case now := <-ticker.C:
			backlog += now.Sub(last)
			last = now
			backlog = l.drain(backlog)
		}
	}
}

func (l *Loop) drain(backlog time.Duration) time.Duration {
	limit := max(l.MaxCatchUp, 1)
	for n := 0; backlog >= l.step && n < limit; n++ {
		began := time.Now()
		l.target.Tick(l.step)
		l.metrics.ObserveTick(time.Since(began))
		l.ticks.Add(1)
		backlog -= l.step
	}
	if backlog >= l.step {
		skipped := uint64(backlog / l.step)
		l.skipped.Add(skipped)
		l.logger.Warn("simulation falling behind", zap.Uint64("skipped_steps", skipped))
		backlog %= l.step
	}
	return backlog
}

// Stop implements Service. Once Start has begun, Stop returns only after the
// step in flight has finished. Safe to call more than once.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
	if l.started.Load() {
		<-l.exited
	}
}

// Ticks returns the number of steps run.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Skipped returns the number of steps discarded while catching up.
func (l *Loop) Skipped() uint64 { return l.skipped.Load() }
