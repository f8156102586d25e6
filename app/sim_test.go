package app

import (
	"sync/atomic"
	"testing"
	"time"

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

type simRig struct {
	app   *App
	bus   *sim.Bus
	axp   *sim.AXP202
	touch *sim.FT6x36
	soft  *liveness.Soft
	fb    *display.Framebuffer
	tel   *telemetry.Bus
}

func newSimRig(t *testing.T) *simRig {
	t.Helper()
	r := &simRig{
		bus:   sim.NewBus(),
		axp:   sim.NewAXP202(),
		touch: sim.NewFT6x36(),
		soft:  liveness.NewSoft(nil, 300*time.Millisecond),
		fb:    display.NewFramebuffer(240, 240),
		tel:   telemetry.New(16),
	}
	r.bus.Attach(uint16(axp202.Address), r.axp)
	r.bus.Attach(uint16(ft6x36.Address), r.touch)
	r.bus.Attach(rtc.Address, sim.NewPCF8563(nil, time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)))

	arb := i2cbus.New(r.bus, i2cbus.Config{TimeoutMS: 100})
	t.Cleanup(arb.Close)

	pmu := axp202.New(arb)
	if err := pmu.Configure(); err != nil {
		t.Fatal(err)
	}
	r.app = New(Config{FrameDelay: 20 * time.Millisecond, Slice: 10 * time.Millisecond}, Deps{
		Display:   display.NewText(r.fb),
		Power:     pmu,
		Touch:     ft6x36.New(arb),
		Clock:     rtc.NewPCF8563(arb.I2C()),
		Live:      liveness.NewBridge(r.soft, nil, 10*time.Millisecond),
		Telemetry: r.tel,
		BusStats:  arb.Stats,
		Log:       func(string, string) {},
	})
	return r
}

func (r *simRig) step(t *testing.T) {
	t.Helper()
	if err := r.app.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
}

func TestEndToEndNavigation(t *testing.T) {
	r := newSimRig(t)

	r.step(t)
	if !r.fb.Shows("08:15") || !r.fb.Shows("80%") {
		t.Fatalf("status bar shows %q", r.fb.Texts())
	}

	r.touch.Touch(50, 50)
	r.step(t)
	r.touch.Lift()
	r.step(t)
	if r.app.State() != Settings {
		t.Fatalf("after press in button 1: %s", r.app.State())
	}
	if !r.fb.Shows("bus ok") {
		t.Fatalf("settings screen shows %q", r.fb.Texts())
	}

	r.touch.Touch(10, 220)
	r.step(t)
	r.touch.Lift()
	r.step(t)
	if r.app.State() != Launcher {
		t.Fatalf("after press on back: %s", r.app.State())
	}

	r.axp.SetBattery(4100, 95, true)
	r.touch.Touch(200, 40)
	r.step(t)
	r.touch.Lift()
	r.step(t)
	if r.app.State() != Battery || !r.fb.Shows("charging") || !r.fb.Shows("95 %") {
		t.Fatalf("battery screen: %s %q", r.app.State(), r.fb.Texts())
	}
	m, ok := r.tel.Retained(topicBattery)
	if !ok || !m.Payload.(BatteryStatus).Charging {
		t.Fatalf("power/battery = %#v", m)
	}

	if r.soft.Misses() != 0 {
		t.Fatalf("missed %d deadlines, worst gap %v", r.soft.Misses(), r.soft.WorstGap())
	}
	if r.soft.WorstGap() > 150*time.Millisecond {
		t.Fatalf("worst renewal gap %v", r.soft.WorstGap())
	}
}

func TestHungPowerChipDoesNotStarveWatchdog(t *testing.T) {
	r := newSimRig(t)
	r.step(t)

	release := r.bus.Hang(uint16(axp202.Address))
	for i := 0; i < 3; i++ {
		err := r.app.Step()
		if errcode.Of(err) != errcode.BusTimeout {
			t.Fatalf("step %d: want bus_timeout, got %v", i, err)
		}
		if errcode.Fatal(err) {
			t.Fatal("bus fault escalated")
		}
	}
	release()

	if r.soft.Misses() != 0 {
		t.Fatalf("missed %d deadlines, worst gap %v", r.soft.Misses(), r.soft.WorstGap())
	}
	// The worker finishes the stuck transfer; the loop recovers.
	deadline := time.Now().Add(time.Second)
	for {
		if err := r.app.Step(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("loop did not recover after release")
		}
	}
}

// slowPMU makes the backlight read-modify-write as slow as the arbiter
// allows: the first read overruns its budget, the retry succeeds late and
// the write never completes until released.
type slowPMU struct {
	budget  time.Duration
	calls   atomic.Int32
	release chan struct{}
}

func (p *slowPMU) Read(addr uint16, r []byte, ms int) error { return nil }

func (p *slowPMU) WriteRead(addr uint16, w, r []byte, ms int) error {
	if p.calls.Add(1) == 1 {
		time.Sleep(p.budget + 5*time.Millisecond)
	} else {
		time.Sleep(p.budget / 2)
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (p *slowPMU) Write(addr uint16, w []byte, ms int) error {
	p.calls.Add(1)
	<-p.release
	return nil
}

func TestFadeInOverSlowPMUKeepsDeadline(t *testing.T) {
	cfg := config.Default()
	pmu := &slowPMU{budget: cfg.BusTimeout(), release: make(chan struct{})}
	arb := i2cbus.New(pmu, i2cbus.Config{TimeoutMS: cfg.BusTimeoutMS})
	defer arb.Close()
	defer close(pmu.release)

	soft := liveness.NewSoft(nil, cfg.WatchdogTimeout())
	bridge := liveness.NewBridge(soft, nil, cfg.Slice())

	err := FadeIn(axp202.New(arb), bridge, 150*time.Millisecond, cfg.Slice())
	if errcode.Of(err) != errcode.BusTimeout {
		t.Fatalf("want bus_timeout from the hung write, got %v", err)
	}
	// The loop's first renewal closes the gap left by the failed level.
	if err := bridge.Renew(); err != nil {
		t.Fatal(err)
	}

	if n := pmu.calls.Load(); n != 3 {
		t.Fatalf("transport calls = %d, want read, retry and write", n)
	}
	if soft.WorstGap() <= 2*cfg.BusTimeout() {
		t.Fatalf("worst gap %v; the read-modify-write was not slowed", soft.WorstGap())
	}
	if soft.Misses() != 0 {
		t.Fatalf("missed %d deadlines, worst gap %v of %v", soft.Misses(), soft.WorstGap(), cfg.WatchdogTimeout())
	}
}
