package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State of the scheduler
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Task is invoked on every wake-up. The context is cancelled by Stop.
type Task func(ctx context.Context) error

// Ticker is the subset of *time.Ticker the scheduler uses
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every interval
type TickerFunc func(interval time.Duration) Ticker

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newTimeTicker(interval time.Duration) Ticker {
	return timeTicker{time.NewTicker(interval)}
}

// Scheduler runs a task at a fixed interval. There is never more than one active
// ticker: Start on a running scheduler does nothing.
type Scheduler struct {
	interval  time.Duration
	task      Task
	newTicker TickerFunc

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

type SchedulerOption func(*Scheduler)

// WithTicker replaces the wall clock ticker, primarily for testing
func WithTicker(newTicker TickerFunc) SchedulerOption {
	return func(s *Scheduler) {
		s.newTicker = newTicker
	}
}

func NewScheduler(interval time.Duration, task Task, options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		interval:  interval,
		task:      task,
		newTicker: newTimeTicker,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.interval <= 0 {
		s.interval = 4 * time.Minute
	}
	return s
}

// Start schedules the recurring wake-up. It returns immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := s.newTicker(s.interval)
	s.cancel = cancel
	s.state = Running
	go s.run(ctx, ticker)
	log.Debug().Dur("interval", s.interval).Msg("refresh scheduler started")
}

// Stop cancels the pending wake-up. It is idempotent and may be called from inside
// the task, so it never waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return
	}
	s.cancel()
	s.cancel = nil
	s.state = Idle
	log.Debug().Msg("refresh scheduler stopped")
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			if err := s.task(ctx); err != nil {
				log.Err(err).Msg("scheduled token refresh failed")
			}
		}
	}
}
