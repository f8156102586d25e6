package liveness

import (
	"errors"
	"sync"
	"testing"
	"time"

	"watchcode-go/errcode"

	"github.com/benbjohnson/clock"
)

// stepClock advances instantly on Sleep, so waits are deterministic.
type stepClock struct {
	clock.Clock
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{Clock: clock.New(), now: time.Unix(1_700_000_000, 0)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// trace records the clock at every renewal.
type trace struct {
	clk *stepClock
	at  []time.Time
	err error
}

func (t *trace) Renew() error {
	if t.err != nil {
		return t.err
	}
	t.at = append(t.at, t.clk.Now())
	return nil
}

func maxGap(at []time.Time) time.Duration {
	var worst time.Duration
	for i := 1; i < len(at); i++ {
		if g := at[i].Sub(at[i-1]); g > worst {
			worst = g
		}
	}
	return worst
}

func TestSlicedWaitCadence(t *testing.T) {
	cases := []struct {
		name         string
		total, slice time.Duration
		wantRenewals int
	}{
		{"exact multiple", 20 * time.Millisecond, 10 * time.Millisecond, 3},
		{"remainder", 25 * time.Millisecond, 10 * time.Millisecond, 4},
		{"shorter than slice", 4 * time.Millisecond, 10 * time.Millisecond, 2},
		{"zero total", 0, 10 * time.Millisecond, 1},
		{"negative total", -time.Second, 10 * time.Millisecond, 1},
		{"slice clamped", 40 * time.Millisecond, time.Second, 5},
		{"slice unset", 30 * time.Millisecond, 0, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clk := newStepClock()
			tr := &trace{clk: clk}
			b := NewBridge(tr, clk, 10*time.Millisecond)
			start := clk.Now()

			if err := b.SlicedWait(c.total, c.slice); err != nil {
				t.Fatal(err)
			}
			if len(tr.at) != c.wantRenewals {
				t.Fatalf("renewals = %d, want %d", len(tr.at), c.wantRenewals)
			}
			if g := maxGap(tr.at); g > 10*time.Millisecond {
				t.Fatalf("gap between renewals %v exceeds slice", g)
			}
			if !tr.at[0].Equal(start) {
				t.Fatal("wait must renew before its first sleep")
			}
			if c.total > 0 {
				if el := clk.Now().Sub(start); el != c.total {
					t.Fatalf("waited %v, want %v", el, c.total)
				}
			}
			if b.Renewals() != uint32(c.wantRenewals) {
				t.Fatalf("Renewals() = %d", b.Renewals())
			}
		})
	}
}

func TestRenewFailureIsSupervisorFailure(t *testing.T) {
	clk := newStepClock()
	cause := errors.New("wdt gone")
	b := NewBridge(&trace{clk: clk, err: cause}, clk, 0)

	err := b.Renew()
	if !errors.Is(err, errcode.SupervisorFailure) || !errors.Is(err, cause) {
		t.Fatalf("got %v", err)
	}
	if !errcode.Fatal(err) {
		t.Fatal("supervisor failure must be fatal")
	}
	if err := b.Wait(50 * time.Millisecond); errcode.Of(err) != errcode.SupervisorFailure {
		t.Fatalf("Wait: got %v", err)
	}
	if clk.Now().Sub(time.Unix(1_700_000_000, 0)) != 0 {
		t.Fatal("wait kept sleeping after a failed renewal")
	}
}

func TestDefaults(t *testing.T) {
	b := NewBridge(NewSoft(nil, time.Second), nil, 0)
	if b.Slice() != DefaultSlice {
		t.Fatalf("slice = %v", b.Slice())
	}
	if err := b.Wait(0); err != nil {
		t.Fatal(err)
	}
}

func TestSoftCountsMisses(t *testing.T) {
	clk := newStepClock()
	s := NewSoft(clk, 30*time.Millisecond)

	_ = s.Renew()
	clk.Sleep(10 * time.Millisecond)
	_ = s.Renew()
	clk.Sleep(45 * time.Millisecond)
	_ = s.Renew()
	clk.Sleep(30 * time.Millisecond)
	_ = s.Renew()

	if s.Misses() != 1 {
		t.Fatalf("misses = %d, want 1", s.Misses())
	}
	if s.WorstGap() != 45*time.Millisecond {
		t.Fatalf("worst = %v", s.WorstGap())
	}

	s.Fail(ErrNotStarted)
	if err := s.Renew(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("got %v", err)
	}
	s.Fail(nil)
	if err := s.Renew(); err != nil {
		t.Fatal(err)
	}
}

func TestBridgeOverSoftNeverMisses(t *testing.T) {
	clk := newStepClock()
	s := NewSoft(clk, 100*time.Millisecond)
	b := NewBridge(s, clk, 10*time.Millisecond)
	for i := 0; i < 100; i++ {
		if err := b.Wait(20 * time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if s.Misses() != 0 || s.WorstGap() > 10*time.Millisecond {
		t.Fatalf("misses=%d worst=%v", s.Misses(), s.WorstGap())
	}
}

func TestMultiRenewsAllUntilFailure(t *testing.T) {
	clk := newStepClock()
	a, b := &trace{clk: clk}, &trace{clk: clk}
	m := Multi{a, b}
	if err := m.Renew(); err != nil {
		t.Fatal(err)
	}
	if len(a.at) != 1 || len(b.at) != 1 {
		t.Fatalf("renewals a=%d b=%d", len(a.at), len(b.at))
	}

	boom := errors.New("boom")
	a.err = boom
	if err := m.Renew(); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if len(b.at) != 1 {
		t.Fatal("renewal continued past a failure")
	}
}
