package liveness

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Soft is a software supervisor. It never resets anything; it records how
// often the renewal deadline would have been missed and the worst gap seen.
// Used by the host simulator, tests and boards without a hardware watchdog.
type Soft struct {
	mu      sync.Mutex
	clk     clock.Clock
	timeout time.Duration

	last    time.Time
	started bool
	misses  int
	worst   time.Duration
	fail    error
}

// NewSoft returns a supervisor with the given deadline.
func NewSoft(clk clock.Clock, timeout time.Duration) *Soft {
	if clk == nil {
		clk = clock.New()
	}
	return &Soft{clk: clk, timeout: timeout}
}

// Renew records a renewal. The first call arms the deadline.
func (s *Soft) Renew() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	now := s.clk.Now()
	if s.started {
		gap := now.Sub(s.last)
		if gap > s.worst {
			s.worst = gap
		}
		if gap > s.timeout {
			s.misses++
		}
	}
	s.started = true
	s.last = now
	return nil
}

// Fail makes every later Renew return err. nil clears it.
func (s *Soft) Fail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Misses is the number of renewals that arrived after the deadline.
func (s *Soft) Misses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.misses
}

// WorstGap is the longest interval observed between two renewals.
func (s *Soft) WorstGap() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worst
}
