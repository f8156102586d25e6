// Package liveness proves progress to an external watchdog.
//
// The control loop never touches the watchdog directly. It holds a Bridge,
// which renews the Supervisor on request and performs every wait as a series
// of short sleeps with a renewal after each, so no wait can starve the
// watchdog.
package liveness

import (
	"errors"
	"sync/atomic"
	"time"

	"watchcode-go/errcode"

	"github.com/benbjohnson/clock"
)

// DefaultSlice is the longest sleep between two renewals inside a wait.
const DefaultSlice = 10 * time.Millisecond

// ErrNotStarted is returned by supervisors renewed before they were armed.
var ErrNotStarted = errors.New("liveness: supervisor not started")

// Supervisor resets the liveness deadline. Renew must not block.
type Supervisor interface {
	Renew() error
}

// Bridge is the only path from the control loop to the Supervisor.
type Bridge struct {
	sup   Supervisor
	clk   clock.Clock
	slice time.Duration

	renewals atomic.Uint32
}

// NewBridge wraps s. slice <= 0 selects DefaultSlice; clk == nil selects the
// wall clock.
func NewBridge(s Supervisor, clk clock.Clock, slice time.Duration) *Bridge {
	if slice <= 0 {
		slice = DefaultSlice
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Bridge{sup: s, clk: clk, slice: slice}
}

// Slice returns the configured maximum sleep between renewals.
func (b *Bridge) Slice() time.Duration { return b.slice }

// Renewals returns how many successful renewals the bridge has made.
func (b *Bridge) Renewals() uint32 { return b.renewals.Load() }

// Renew resets the deadline now. Any failure is a supervisor_failure.
func (b *Bridge) Renew() error {
	if err := b.sup.Renew(); err != nil {
		return &errcode.E{C: errcode.SupervisorFailure, Op: "renew", Err: err}
	}
	b.renewals.Add(1)
	return nil
}

// SlicedWait waits total, renewing at the start and after every sleep of at
// most slice. A slice that is unset or longer than the bridge's own is
// clamped to it. total <= 0 renews once and returns.
func (b *Bridge) SlicedWait(total, slice time.Duration) error {
	if slice <= 0 || slice > b.slice {
		slice = b.slice
	}
	if err := b.Renew(); err != nil {
		return err
	}
	if total <= 0 {
		return nil
	}
	deadline := b.clk.Now().Add(total)
	for {
		rem := deadline.Sub(b.clk.Now())
		if rem <= 0 {
			return nil
		}
		b.clk.Sleep(min(slice, rem))
		if err := b.Renew(); err != nil {
			return err
		}
	}
}

// Wait is SlicedWait with the bridge's slice.
func (b *Bridge) Wait(total time.Duration) error {
	return b.SlicedWait(total, b.slice)
}

// Multi renews every supervisor in order. The first failure stops the round
// and is returned.
type Multi []Supervisor

func (m Multi) Renew() error {
	for _, s := range m {
		if err := s.Renew(); err != nil {
			return err
		}
	}
	return nil
}
