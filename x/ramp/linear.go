package ramp

import (
	"time"

	"watchcode-go/x/mathx"
)

// Set applies one level. A non-nil error stops the ramp.
type Set func(level uint16) error

// Tick waits d. A non-nil error stops the ramp.
type Tick func(d time.Duration) error

// Linear moves from cur to to in steps equal waits spread over total,
// calling set whenever the integer level changes. The final level is always
// set unless a call failed. steps <= 0 or total <= 0 snaps to to.
func Linear(cur, to uint16, total time.Duration, steps int, tick Tick, set Set) error {
	if steps <= 0 || total <= 0 {
		return set(to)
	}
	step := mathx.Max(total/time.Duration(steps), time.Millisecond)
	span := int32(to) - int32(cur)
	last := cur
	for i := 1; i <= steps; i++ {
		if err := tick(step); err != nil {
			return err
		}
		lv := uint16(int32(cur) + span*int32(i)/int32(steps))
		if lv == last && i < steps {
			continue
		}
		if err := set(lv); err != nil {
			return err
		}
		last = lv
	}
	return nil
}
