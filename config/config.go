// Package config holds the runtime tunables of the watch core. Firmware uses
// the compiled defaults (adjusted per board); the host simulator may overlay
// a JSON file.
package config

import (
	"encoding/json"
	"io"
	"time"

	"watchcode-go/errcode"
)

type Config struct {
	BusTimeoutMS      int `json:"bus_timeout_ms"`
	BusQueueLen       int `json:"bus_queue_len"`
	WatchdogTimeoutMS int `json:"watchdog_timeout_ms"`
	SliceMS           int `json:"slice_ms"`
	FrameDelayMS      int `json:"frame_delay_ms"`

	PanelWidth     int   `json:"panel_width"`
	PanelHeight    int   `json:"panel_height"`
	TouchThreshold uint8 `json:"touch_threshold,omitempty"`

	// StatsEvery publishes loop statistics every N iterations; 0 disables.
	StatsEvery int `json:"stats_every"`
}

func Default() Config {
	return Config{
		BusTimeoutMS:      100,
		BusQueueLen:       16,
		WatchdogTimeoutMS: 400,
		SliceMS:           10,
		FrameDelayMS:      20,
		PanelWidth:        240,
		PanelHeight:       240,
		StatsEvery:        50,
	}
}

// maxCallsPerRenewal is the most bus calls any client makes between two
// renewals.
const maxCallsPerRenewal = 3

func (c Config) BusTimeout() time.Duration      { return ms(c.BusTimeoutMS) }
func (c Config) WatchdogTimeout() time.Duration { return ms(c.WatchdogTimeoutMS) }
func (c Config) Slice() time.Duration           { return ms(c.SliceMS) }
func (c Config) FrameDelay() time.Duration      { return ms(c.FrameDelayMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Validate checks the timing relations the liveness guarantee depends on:
// a sleep slice at most a tenth of the watchdog timeout, and a bus budget
// such that the longest run of bus calls between two renewals, one slice
// included, fits inside the watchdog timeout. That run is a read-modify-write:
// a register read, its single retry and the write.
func (c Config) Validate() error {
	switch {
	case c.BusTimeoutMS <= 0:
		return invalid("bus_timeout_ms must be positive")
	case c.WatchdogTimeoutMS <= 0:
		return invalid("watchdog_timeout_ms must be positive")
	case c.SliceMS <= 0:
		return invalid("slice_ms must be positive")
	case c.FrameDelayMS < 0:
		return invalid("frame_delay_ms must not be negative")
	case c.BusQueueLen < 0 || c.StatsEvery < 0:
		return invalid("negative count")
	case c.PanelWidth <= 0 || c.PanelHeight <= 0 || c.PanelWidth > 0xFFF || c.PanelHeight > 0xFFF:
		return invalid("panel size out of range")
	case c.SliceMS*10 > c.WatchdogTimeoutMS:
		return invalid("slice_ms exceeds a tenth of watchdog_timeout_ms")
	case maxCallsPerRenewal*c.BusTimeoutMS+c.SliceMS >= c.WatchdogTimeoutMS:
		return invalid("three bus_timeout_ms plus slice_ms must fit below watchdog_timeout_ms")
	}
	return nil
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidConfig, Op: "config", Msg: msg}
}

// Load overlays the JSON document in r onto Default and validates the
// result. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config_load", Err: err}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
