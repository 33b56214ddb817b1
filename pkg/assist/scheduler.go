package assist

import (
	"context"
	"sync"
	"time"
)

// RunFunc performs one analysis. It should return promptly once ctx is done.
type RunFunc func(ctx context.Context, req Request) (*Result, error)

// DeliverFunc receives a result that is still current. It must not call
// Offer on the same Scheduler.
type DeliverFunc func(generation uint64, res *Result)

// Scheduler debounces analyses and drops stale results.
//
// Every Schedule call bumps a generation counter and cancels the analysis
// pending for the previous generation. A result is delivered only while its
// generation is the latest scheduled one and higher than any generation
// already delivered.
type Scheduler struct {
	delay   time.Duration
	run     RunFunc
	deliver DeliverFunc

	mu        sync.Mutex
	latest    uint64
	delivered uint64
	timer     *time.Timer
	cancel    context.CancelFunc
	stopped   bool

	// deliverMu keeps deliveries in generation order.
	deliverMu sync.Mutex
}

// NewScheduler creates a Scheduler that waits delay after the last Schedule
// call before running.
func NewScheduler(delay time.Duration, run RunFunc, deliver DeliverFunc) *Scheduler {
	return &Scheduler{delay: delay, run: run, deliver: deliver}
}

// Schedule queues req and returns its generation.
// After Stop it does nothing and returns the last generation.
func (s *Scheduler) Schedule(req Request) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return s.latest
	}
	s.latest++
	gen := s.latest

	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.timer = time.AfterFunc(s.delay, func() { s.fire(ctx, gen, req) })
	return gen
}

func (s *Scheduler) fire(ctx context.Context, gen uint64, req Request) {
	if !s.current(gen) {
		return
	}
	res, err := s.run(ctx, req)
	if err != nil {
		return
	}
	s.Offer(gen, res)
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped && gen == s.latest
}

// Offer delivers a result computed for gen if it is still current.
// It reports whether the result was delivered.
func (s *Scheduler) Offer(gen uint64, res *Result) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.stopped || gen != s.latest || gen <= s.delivered {
		s.mu.Unlock()
		return false
	}
	s.delivered = gen
	s.mu.Unlock()

	s.deliver(gen, res)
	return true
}

// Latest returns the most recently scheduled generation.
func (s *Scheduler) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Stop cancels any pending analysis. Later results are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
}
