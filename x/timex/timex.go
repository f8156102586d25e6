package timex

import "time"

// Ms converts a duration to whole milliseconds, rounding up so that a positive
// duration never becomes a zero timeout.
func Ms(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
