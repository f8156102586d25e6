package sim

import (
	"time"

	"github.com/benbjohnson/clock"
)

// PCF8563 models the RTC at 0x51. Time runs on clk from the last value set.
type PCF8563 struct {
	regFile
	clk   clock.Clock
	base  time.Time
	start time.Time
}

const (
	rtcSeconds = 0x02
	rtcYears   = 0x08
)

func NewPCF8563(clk clock.Clock, t time.Time) *PCF8563 {
	if clk == nil {
		clk = clock.New()
	}
	r := &PCF8563{clk: clk, base: t.UTC(), start: clk.Now()}
	r.refresh = r.encode
	r.written = r.decode
	return r
}

func (r *PCF8563) now() time.Time {
	return r.base.Add(r.clk.Now().Sub(r.start))
}

func (r *PCF8563) encode(first uint8, n int) {
	if int(first) > rtcYears || int(first)+n <= rtcSeconds {
		return
	}
	t := r.now()
	r.regs[0x02] = bcd(t.Second())
	r.regs[0x03] = bcd(t.Minute())
	r.regs[0x04] = bcd(t.Hour())
	r.regs[0x05] = bcd(t.Day())
	r.regs[0x06] = bcd(int(t.Weekday()))
	r.regs[0x07] = bcd(int(t.Month()))
	r.regs[0x08] = bcd(t.Year() % 100)
}

func (r *PCF8563) decode(first uint8, n int) {
	if !covers(first, n, rtcSeconds) {
		return
	}
	r.base = time.Date(2000+dec(r.regs[0x08]), time.Month(dec(r.regs[0x07]&0x1F)), dec(r.regs[0x05]&0x3F),
		dec(r.regs[0x04]&0x3F), dec(r.regs[0x03]&0x7F), dec(r.regs[0x02]&0x7F), 0, time.UTC)
	r.start = r.clk.Now()
}

func bcd(v int) byte { return byte(v/10<<4 | v%10) }
func dec(b byte) int { return int(b>>4)*10 + int(b&0x0F) }
