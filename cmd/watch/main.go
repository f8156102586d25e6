//go:build tinygo

// Command watch is the firmware image. Board wiring lives in the
// board_*.go files selected by build tag.
package main

import (
	"context"
	"io"
	"time"

	"watchcode-go/app"
	"watchcode-go/config"
	"watchcode-go/display"
	"watchcode-go/drivers/axp202"
	"watchcode-go/drivers/ft6x36"
	"watchcode-go/drivers/rtc"
	"watchcode-go/i2cbus"
	"watchcode-go/liveness"
	"watchcode-go/telemetry"

	"tinygo.org/x/drivers"
)

const fadeIn = 300 * time.Millisecond

// board is what a board file hands to main.
type board struct {
	name    string
	i2c     drivers.I2C
	panel   drivers.Displayer
	sup     liveness.Supervisor
	arm     func() error // arms sup; nil if nothing to arm
	console io.Writer    // telemetry console; nil disables
}

func main() {
	time.Sleep(2 * time.Second)
	ctx := context.Background()

	cfg := tune(config.Default())
	if err := cfg.Validate(); err != nil {
		println("[main] config: " + err.Error())
		halt()
	}

	b := setup(cfg)
	println("[main] board " + b.name)

	arb := i2cbus.New(i2cbus.FromDriversI2C(b.i2c), i2cbus.Config{
		TimeoutMS: cfg.BusTimeoutMS,
		QueueLen:  cfg.BusQueueLen,
	})

	pmu := axp202.New(arb)
	if err := pmu.Configure(); err != nil {
		println("[main] axp202 configure: " + err.Error())
	}
	if err := pmu.SetBacklightLevel(0); err != nil {
		println("[main] backlight level: " + err.Error())
	}
	if err := pmu.SetBacklight(true); err != nil {
		println("[main] backlight: " + err.Error())
	}

	touch := ft6x36.New(arb)
	if err := touch.Configure(ft6x36.Config{
		Width:     uint16(cfg.PanelWidth),
		Height:    uint16(cfg.PanelHeight),
		Threshold: cfg.TouchThreshold,
	}); err != nil {
		println("[main] ft6x36 configure: " + err.Error())
	}

	tel := telemetry.New(4)
	if b.console != nil {
		mon := tel.NewConnection("console").Subscribe(telemetry.Topic{telemetry.MultiWild})
		go telemetry.Pump(ctx, mon, func(m *telemetry.Message) {
			_, _ = io.WriteString(b.console, app.Describe(m)+"\r\n")
		})
	}

	if b.arm != nil {
		if err := b.arm(); err != nil {
			println("[main] watchdog: " + err.Error())
			halt()
		}
	}

	live := liveness.NewBridge(b.sup, nil, cfg.Slice())
	if err := app.FadeIn(pmu, live, fadeIn, cfg.Slice()); err != nil {
		println("[main] fade in: " + err.Error())
	}

	a := app.New(app.Config{
		FrameDelay: cfg.FrameDelay(),
		Slice:      cfg.Slice(),
		StatsEvery: cfg.StatsEvery,
	}, app.Deps{
		Display:   display.NewText(b.panel),
		Power:     pmu,
		Touch:     touch,
		Clock:     rtc.NewPCF8563(arb.I2C()),
		Live:      live,
		Telemetry: tel,
		BusStats:  arb.Stats,
	})

	println("[main] starting app loop …")
	err := a.Run(ctx)
	println("[main] app loop exited: " + err.Error())
	halt()
}

// halt parks forever. With a hardware watchdog armed the chip resets.
func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
