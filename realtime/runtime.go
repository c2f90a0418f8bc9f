package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate"
)

var (
	// ErrQueueFull is returned by Submit when the tick batch is at capacity.
	ErrQueueFull = errors.New("realtime: update queue full")
	// ErrStarted is returned by Start on a runtime that is already running.
	ErrStarted = errors.New("realtime: runtime already started")
)

// Runtime applies queued updates to a State at fixed tick boundaries.
type Runtime struct {
	state    *smartstate.State
	stateMu  sync.Mutex
	coalesce bool
	log      zerolog.Logger

	tickRate time.Duration
	ticker   *time.Ticker

	batch    []UpdateWithMeta
	batchMu  sync.Mutex
	sequence uint64
	stats    Stats

	tickCtx    context.Context
	tickCancel context.CancelFunc
	stopped    chan struct{}
}

// Config configures the runtime.
type Config struct {
	TickRate          time.Duration // e.g. 16.67ms for 60 Hz
	MaxUpdatesPerTick int           // queue capacity (default: 1000)
	// Coalesce merges a tick's updates into one transaction.
	Coalesce bool
}

// Stats counts what the runtime has done so far.
type Stats struct {
	Ticks    uint64
	Applied  uint64
	Rejected uint64
	Queued   int
}

// NewRuntime creates a runtime owning s. After Start, s must only be
// touched through View.
func NewRuntime(s *smartstate.State, cfg Config) *Runtime {
	if cfg.MaxUpdatesPerTick <= 0 {
		cfg.MaxUpdatesPerTick = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	return &Runtime{
		state:    s,
		coalesce: cfg.Coalesce,
		log:      zerolog.Nop(),
		tickRate: cfg.TickRate,
		batch:    make([]UpdateWithMeta, 0, cfg.MaxUpdatesPerTick),
	}
}

// Start begins tick-based execution. The logger carried by ctx receives
// rejected updates and recovered panics.
func (rt *Runtime) Start(ctx context.Context) error {
	if rt.stopped != nil {
		return ErrStarted
	}
	rt.log = *zerolog.Ctx(ctx)
	rt.tickCtx, rt.tickCancel = context.WithCancel(ctx)
	rt.ticker = time.NewTicker(rt.tickRate)
	rt.stopped = make(chan struct{})

	go rt.tickLoop()
	return nil
}

// Stop halts the ticker and waits for the loop to exit. Updates still
// queued stay queued; Step applies them.
func (rt *Runtime) Stop() error {
	if rt.stopped == nil {
		return nil
	}
	rt.tickCancel()
	rt.ticker.Stop()
	<-rt.stopped
	return nil
}

func (rt *Runtime) tickLoop() {
	defer close(rt.stopped)
	for {
		select {
		case <-rt.tickCtx.Done():
			return
		case <-rt.ticker.C:
			rt.Step()
		}
	}
}

// Submit queues p for the next tick. Safe for concurrent use.
func (rt *Runtime) Submit(p smartstate.Props) error {
	return rt.SubmitWithPriority(p, 0)
}

// SubmitWithPriority queues p; higher priorities are applied first within
// a tick.
func (rt *Runtime) SubmitWithPriority(p smartstate.Props, priority int) error {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	if len(rt.batch) >= cap(rt.batch) {
		return ErrQueueFull
	}
	rt.batch = append(rt.batch, UpdateWithMeta{
		Update:      p.Clone(),
		SequenceNum: rt.sequence,
		Priority:    priority,
	})
	rt.sequence++
	return nil
}

// View runs fn with exclusive access to the State.
func (rt *Runtime) View(fn func(s *smartstate.State)) {
	rt.stateMu.Lock()
	defer rt.stateMu.Unlock()
	fn(rt.state)
}

// TickNumber returns the number of completed ticks.
func (rt *Runtime) TickNumber() uint64 {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	return rt.stats.Ticks
}

// Stats returns a copy of the counters.
func (rt *Runtime) Stats() Stats {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	st := rt.stats
	st.Queued = len(rt.batch)
	return st
}
