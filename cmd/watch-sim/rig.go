//go:build !tinygo

package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"watchcode-go/app"
	"watchcode-go/config"
	"watchcode-go/display"
	"watchcode-go/drivers/axp202"
	"watchcode-go/drivers/ft6x36"
	"watchcode-go/drivers/rtc"
	"watchcode-go/errcode"
	"watchcode-go/i2cbus"
	"watchcode-go/liveness"
	"watchcode-go/sim"
	"watchcode-go/telemetry"
)

const fadeIn = 150 * time.Millisecond

type rigOptions struct {
	Bus      string // Linux I2C bus name; "" selects the simulator
	Watchdog string // watchdog device path; "" disables
}

// rig is the host assembly of the watch: arbiter, clients, framebuffer,
// supervisors and the app loop.
type rig struct {
	log    *zap.SugaredLogger
	arb    *i2cbus.Arbiter
	fb     *display.Framebuffer
	tel    *telemetry.Bus
	soft   *liveness.Soft
	bridge *liveness.Bridge
	app    *app.App
	pmu    *axp202.Device
	cfg    config.Config
	touch  *sim.FT6x36 // nil on a real bus
	axp    *sim.AXP202 // nil on a real bus

	closers []func() error
}

func newRig(cfg config.Config, opt rigOptions, logger *zap.SugaredLogger) (*rig, error) {
	r := &rig{
		log: logger,
		cfg: cfg,
		fb:  display.NewFramebuffer(int16(cfg.PanelWidth), int16(cfg.PanelHeight)),
		tel: telemetry.New(32),
	}

	var tr i2cbus.Transport
	if opt.Bus != "" {
		p, err := i2cbus.OpenPeriph(opt.Bus, 0)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, p.Close)
		logger.Infow("i2c bus opened", "bus", p.String())
		tr = p
	} else {
		b := sim.NewBus()
		r.touch = sim.NewFT6x36()
		r.axp = sim.NewAXP202()
		b.Attach(uint16(axp202.Address), r.axp)
		b.Attach(uint16(ft6x36.Address), r.touch)
		b.Attach(rtc.Address, sim.NewPCF8563(nil, time.Now()))
		tr = b
	}
	r.arb = i2cbus.New(tr, i2cbus.Config{TimeoutMS: cfg.BusTimeoutMS, QueueLen: cfg.BusQueueLen})
	r.closers = append(r.closers, func() error { r.arb.Close(); return nil })

	pmu := axp202.New(r.arb)
	r.pmu = pmu
	if err := pmu.Configure(); err != nil {
		logger.Warnw("axp202 configure", "error", err)
	}
	if err := pmu.SetBacklight(true); err != nil {
		logger.Warnw("backlight", "error", err)
	}
	touch := ft6x36.New(r.arb)
	if err := touch.Configure(ft6x36.Config{
		Width:     uint16(cfg.PanelWidth),
		Height:    uint16(cfg.PanelHeight),
		Threshold: cfg.TouchThreshold,
	}); err != nil {
		logger.Warnw("ft6x36 configure", "error", err)
	}

	r.soft = liveness.NewSoft(nil, cfg.WatchdogTimeout())
	sups := liveness.Multi{r.soft}
	if opt.Watchdog != "" {
		wd, err := openWatchdog(opt.Watchdog, cfg.WatchdogTimeout())
		if err != nil {
			r.close()
			return nil, err
		}
		r.closers = append(r.closers, wd.Close)
		sups = append(sups, wd)
		logger.Infow("kernel watchdog armed", "device", opt.Watchdog)
	}
	r.bridge = liveness.NewBridge(sups, nil, cfg.Slice())

	r.app = app.New(app.Config{
		FrameDelay: cfg.FrameDelay(),
		Slice:      cfg.Slice(),
		StatsEvery: cfg.StatsEvery,
	}, app.Deps{
		Display:   display.NewText(r.fb),
		Power:     pmu,
		Touch:     touch,
		Clock:     rtc.NewPCF8563(r.arb.I2C()),
		Live:      r.bridge,
		Telemetry: r.tel,
		BusStats:  r.arb.Stats,
		Log:       func(tag, msg string) { logger.Named(tag).Debug(msg) },
	})
	return r, nil
}

// run fades the backlight in, then drives the loop for frames iterations
// (0: until ctx ends), applying the touch script before each iteration.
func (r *rig) run(ctx context.Context, frames int, script touchScript) error {
	if err := app.FadeIn(r.pmu, r.bridge, fadeIn, r.cfg.Slice()); errcode.Fatal(err) {
		return err
	} else if err != nil {
		r.log.Warnw("fade in", "error", err)
	}
	if len(script) > 0 && r.touch == nil {
		r.log.Warn("touch script ignored on a real bus")
		script = nil
	}
	if len(script) == 0 {
		return r.app.RunN(ctx, frames)
	}
	for i := 0; frames <= 0 || i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		script.apply(i, r.touch)
		if err := r.app.Step(); errcode.Fatal(err) {
			return err
		}
	}
	return nil
}

// monitor logs telemetry until ctx ends. The per-iteration percentage goes
// to debug.
func (r *rig) monitor(ctx context.Context) {
	sub := r.tel.NewConnection("monitor").Subscribe(telemetry.Topic{telemetry.MultiWild})
	percent := telemetry.Parse("power/percent")
	telemetry.Pump(ctx, sub, func(m *telemetry.Message) {
		if telemetry.Match(percent, m.Topic) {
			r.log.Debug(app.Describe(m))
			return
		}
		r.log.Info(app.Describe(m))
	})
}

func (r *rig) summary() {
	st := r.app.Stats()
	bs := r.arb.Stats()
	r.log.Infow("run finished",
		"iterations", st.Iterations,
		"transitions", st.Transitions,
		"renewals", r.bridge.Renewals(),
		"missed_deadlines", r.soft.Misses(),
		"worst_gap", r.soft.WorstGap(),
		"bus_completed", bs.Completed,
		"bus_timeouts", bs.Timeouts,
		"bus_nacks", bs.Nacks,
		"bus_abandoned", bs.Abandoned,
	)
	for code, n := range st.Faults {
		r.log.Infow("faults", "code", code, "count", n)
	}
}

// close releases resources in reverse order of acquisition.
func (r *rig) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.log.Warnw("close", "error", err)
		}
	}
	r.closers = nil
}
