// Package app is the watch's control loop: a three-screen state machine
// driven by touch, a status bar (time and battery) and a liveness protocol
// that renews the supervisor between every bus-bound or draw-bound step.
//
// A transient bus or draw fault costs one skipped field for one iteration;
// only a supervisor failure stops the loop.
package app

import (
	"context"
	"time"

	"watchcode-go/display"
	"watchcode-go/drivers/ft6x36"
	"watchcode-go/errcode"
	"watchcode-go/i2cbus"
	"watchcode-go/liveness"
	"watchcode-go/telemetry"

	"go.uber.org/multierr"
)

// Power is the battery side of the power-management client.
type Power interface {
	BatteryPercentage() (uint8, error)
	BatteryVoltageMilliV() (uint16, error)
	IsCharging() (bool, error)
}

// Touch is polled once per iteration. nil means no event.
type Touch interface {
	Poll() (*ft6x36.Event, error)
}

// Clock supplies the status-bar time.
type Clock interface {
	Now() (time.Time, error)
}

// Liveness is the supervisor bridge as seen by the loop.
type Liveness interface {
	Renew() error
	SlicedWait(total, slice time.Duration) error
}

type Config struct {
	FrameDelay time.Duration // 0 => 20 ms
	Slice      time.Duration // 0 => liveness.DefaultSlice
	StatsEvery int           // publish app/stats every N iterations; 0 disables
}

// Deps are the collaborators. Telemetry, BusStats and Log are optional.
type Deps struct {
	Display   display.Display
	Power     Power
	Touch     Touch
	Clock     Clock
	Live      Liveness
	Telemetry *telemetry.Bus
	BusStats  func() i2cbus.Stats
	Log       func(tag, msg string)
}

type App struct {
	cfg  Config
	d    Deps
	conn *telemetry.Connection

	state   State
	fresh   bool // nothing drawn yet
	shownT  string
	shownB  string
	stats   Stats
	lastBat BatteryStatus
}

func New(cfg Config, d Deps) *App {
	if cfg.FrameDelay <= 0 {
		cfg.FrameDelay = 20 * time.Millisecond
	}
	if cfg.Slice <= 0 {
		cfg.Slice = liveness.DefaultSlice
	}
	if d.Log == nil {
		d.Log = func(tag, msg string) { println("[" + tag + "] " + msg) }
	}
	a := &App{cfg: cfg, d: d, state: Launcher, fresh: true}
	a.stats.Faults = make(map[errcode.Code]uint32)
	if d.Telemetry != nil {
		a.conn = d.Telemetry.NewConnection("app")
	}
	return a
}

func (a *App) State() State { return a.state }

// Stats returns a copy of the loop counters.
func (a *App) Stats() Stats { return a.stats.clone() }

// Step runs one iteration: renew, status bar, renew, poll touch, transition,
// renew, render, sliced frame wait. The returned error combines every
// non-fatal fault of the iteration; a supervisor failure is returned at once.
func (a *App) Step() error {
	a.stats.Iterations++
	if err := a.d.Live.Renew(); err != nil {
		return a.fatal(nil, err)
	}

	var errs error
	cleared := true
	if a.fresh {
		a.shownT, a.shownB = "", ""
		if err := a.d.Display.Clear(display.Black); err != nil {
			errs = multierr.Append(errs, err)
			cleared = false
		}
	}

	// Status bar.
	errs = multierr.Append(errs, a.drawTime())
	if err := a.d.Live.Renew(); err != nil {
		return a.fatal(errs, err)
	}
	errs = multierr.Append(errs, a.drawPercent())

	// Input.
	if err := a.d.Live.Renew(); err != nil {
		return a.fatal(errs, err)
	}
	ev, err := a.d.Touch.Poll()
	if err != nil {
		errs = multierr.Append(errs, err)
		ev = nil
	}
	next := Next(a.state, ev)
	changed := next != a.state || a.fresh
	if next != a.state {
		a.stats.Transitions++
		a.d.Log("app", "state "+a.state.String()+" -> "+next.String())
		a.state = next
		a.publish(topicState, StateReport{State: next, Iteration: a.stats.Iterations}, true)
	} else if a.fresh {
		a.publish(topicState, StateReport{State: a.state, Iteration: a.stats.Iterations}, true)
	}

	// Body.
	if err := a.d.Live.Renew(); err != nil {
		return a.fatal(errs, err)
	}
	rerr, ferr := a.render(changed)
	errs = multierr.Append(errs, rerr)
	if ferr != nil {
		return a.fatal(errs, ferr)
	}
	errs = multierr.Append(errs, a.d.Display.Flush())
	// A failed first clear is retried next iteration.
	a.fresh = !cleared

	if err := a.d.Live.SlicedWait(a.cfg.FrameDelay, a.cfg.Slice); err != nil {
		return a.fatal(errs, err)
	}

	a.report(errs)
	if a.cfg.StatsEvery > 0 && a.stats.Iterations%uint32(a.cfg.StatsEvery) == 0 {
		a.publish(topicStats, a.stats.clone(), true)
	}
	return errs
}

// Run repeats Step until ctx ends or a supervisor failure occurs.
func (a *App) Run(ctx context.Context) error {
	return a.RunN(ctx, 0)
}

// RunN is Run bounded to n iterations; n <= 0 means unbounded.
func (a *App) RunN(ctx context.Context, n int) error {
	a.d.Log("app", "loop start")
	for i := 0; n <= 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			a.d.Log("app", "loop stop")
			return ctx.Err()
		default:
		}
		if err := a.Step(); errcode.Fatal(err) {
			a.d.Log("app", "fatal: "+err.Error())
			return err
		}
	}
	return nil
}

// fatal reports what the iteration collected so far, then the failure.
func (a *App) fatal(pending, err error) error {
	a.report(pending)
	a.report(err)
	return err
}

// report counts, logs and publishes every fault in err.
func (a *App) report(err error) {
	for _, e := range multierr.Errors(err) {
		c := errcode.Of(e)
		a.stats.Faults[c]++
		a.d.Log("app", "fault: "+e.Error())
		a.publish(faultTopic(c), Fault{Code: c, Detail: e.Error(), Iteration: a.stats.Iterations}, false)
	}
}

func (a *App) publish(t telemetry.Topic, payload any, retained bool) {
	if a.conn == nil {
		return
	}
	a.conn.Publish(a.d.Telemetry.NewMessage(t, payload, retained))
}
