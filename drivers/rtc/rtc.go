// Package rtc provides the wall-clock source for the status bar.
package rtc

import (
	"time"

	"watchcode-go/errcode"

	"github.com/benbjohnson/clock"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/pcf8563"
)

// Address is the PCF8563's fixed bus address.
const Address = 0x51

// Source reports the current wall-clock time.
type Source interface {
	Now() (time.Time, error)
}

// PCF8563 is the board RTC. The bus is normally the arbiter's drivers.I2C
// view, so each access is serialised and time-bounded like any other client.
type PCF8563 struct {
	dev pcf8563.Device
}

func NewPCF8563(bus drivers.I2C) *PCF8563 {
	return &PCF8563{dev: pcf8563.New(bus)}
}

func (r *PCF8563) Now() (time.Time, error) {
	t, err := r.dev.ReadTime()
	if err != nil {
		return time.Time{}, wrap("rtc_read", err)
	}
	return t, nil
}

func (r *PCF8563) Set(t time.Time) error {
	if err := r.dev.SetTime(t.UTC()); err != nil {
		return wrap("rtc_set", err)
	}
	return nil
}

// wrap keeps an already classified bus error as is and tags anything else.
func wrap(op string, err error) error {
	if errcode.IsBus(err) {
		return err
	}
	return &errcode.E{C: errcode.MapTransportErr(err), Op: op, Err: err}
}

// Uptime is a Source for boards without an RTC: it counts from base at the
// moment it was created.
type Uptime struct {
	clk   clock.Clock
	base  time.Time
	start time.Time
}

func NewUptime(clk clock.Clock, base time.Time) *Uptime {
	if clk == nil {
		clk = clock.New()
	}
	return &Uptime{clk: clk, base: base, start: clk.Now()}
}

func (u *Uptime) Now() (time.Time, error) {
	return u.base.Add(u.clk.Now().Sub(u.start)), nil
}
