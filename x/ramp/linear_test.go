package ramp

import (
	"errors"
	"testing"
	"time"
)

func TestLinearUp(t *testing.T) {
	var levels []uint16
	var waited time.Duration
	err := Linear(0, 15, 150*time.Millisecond, 5,
		func(d time.Duration) error { waited += d; return nil },
		func(l uint16) error { levels = append(levels, l); return nil })
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{3, 6, 9, 12, 15}
	if len(levels) != len(want) {
		t.Fatalf("levels = %v", levels)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("levels = %v, want %v", levels, want)
		}
	}
	if waited != 150*time.Millisecond {
		t.Fatalf("waited %v", waited)
	}
}

func TestLinearDownSkipsRepeats(t *testing.T) {
	var levels []uint16
	err := Linear(2, 0, time.Second, 8,
		func(time.Duration) error { return nil },
		func(l uint16) error { levels = append(levels, l); return nil })
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 2 || levels[0] != 1 || levels[1] != 0 {
		t.Fatalf("levels = %v", levels)
	}
}

func TestLinearSnap(t *testing.T) {
	var got []uint16
	set := func(l uint16) error { got = append(got, l); return nil }
	tick := func(time.Duration) error { t.Fatal("tick on snap"); return nil }
	if err := Linear(0, 9, 0, 4, tick, set); err != nil {
		t.Fatal(err)
	}
	if err := Linear(0, 7, time.Second, 0, tick, set); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 9 || got[1] != 7 {
		t.Fatalf("got %v", got)
	}
}

func TestLinearStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	n := 0
	err := Linear(0, 10, 10*time.Millisecond, 10,
		func(time.Duration) error {
			n++
			if n == 3 {
				return boom
			}
			return nil
		},
		func(uint16) error { return nil })
	if !errors.Is(err, boom) || n != 3 {
		t.Fatalf("err %v after %d ticks", err, n)
	}

	calls := 0
	err = Linear(0, 10, 10*time.Millisecond, 10,
		func(time.Duration) error { return nil },
		func(uint16) error { calls++; return boom })
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err %v after %d sets", err, calls)
	}
}
