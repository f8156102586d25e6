package ft6x36

import (
	"testing"

	"watchcode-go/errcode"
	"watchcode-go/i2cbus"
	"watchcode-go/sim"
)

func newDev(t *testing.T) (*Device, *sim.FT6x36, *sim.Bus) {
	t.Helper()
	bus := sim.NewBus()
	chip := sim.NewFT6x36()
	bus.Attach(uint16(Address), chip)
	arb := i2cbus.New(bus, i2cbus.Config{TimeoutMS: 50})
	t.Cleanup(arb.Close)
	return New(arb), chip, bus
}

func mustPoll(t *testing.T, d *Device) *Event {
	t.Helper()
	ev, err := d.Poll()
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestPressMoveRelease(t *testing.T) {
	d, chip, _ := newDev(t)

	if ev := mustPoll(t, d); ev != nil {
		t.Fatalf("idle panel reported %+v", ev)
	}

	chip.Touch(50, 60)
	if ev := mustPoll(t, d); ev == nil || ev.Kind != Press || ev.X != 50 || ev.Y != 60 {
		t.Fatalf("want press at 50,60, got %+v", ev)
	}
	chip.Touch(55, 61)
	if ev := mustPoll(t, d); ev == nil || ev.Kind != Move || ev.X != 55 {
		t.Fatalf("want move, got %+v", ev)
	}
	chip.Lift()
	if ev := mustPoll(t, d); ev == nil || ev.Kind != Release || ev.X != 55 || ev.Y != 61 {
		t.Fatalf("want release at last point, got %+v", ev)
	}
	if ev := mustPoll(t, d); ev != nil {
		t.Fatalf("release reported twice: %+v", ev)
	}
}

func TestContactWithoutPressDownIsPress(t *testing.T) {
	d, chip, _ := newDev(t)
	chip.Touch(10, 220)
	// Consume the press-down flag behind the driver's back.
	r := make([]byte, 5)
	_ = chip.Write([]byte{regTDStatus})
	_ = chip.Read(r)

	if ev := mustPoll(t, d); ev == nil || ev.Kind != Press || ev.Y != 220 {
		t.Fatalf("want press, got %+v", ev)
	}
}

func TestCoordinatesClamped(t *testing.T) {
	d, chip, _ := newDev(t)
	chip.Touch(0xFFF, 300)
	ev := mustPoll(t, d)
	if ev == nil || ev.X != DefaultWidth-1 || ev.Y != DefaultHeight-1 {
		t.Fatalf("got %+v", ev)
	}
}

func TestConfigure(t *testing.T) {
	d, chip, _ := newDev(t)
	if err := d.Configure(Config{Width: 320, Height: 240, Threshold: 22, ActivePeriod: 12}); err != nil {
		t.Fatal(err)
	}
	if chip.Reg(regThreshold) != 22 || chip.Reg(regPeriodAct) != 12 {
		t.Fatal("registers not written")
	}
	chip.Touch(300, 10)
	if ev := mustPoll(t, d); ev == nil || ev.X != 300 {
		t.Fatalf("width not applied: %+v", ev)
	}
	id, err := d.ChipID()
	if err != nil || id != 0x64 {
		t.Fatalf("chip id = %#x, %v", id, err)
	}
}

func TestPollErrors(t *testing.T) {
	d, _, bus := newDev(t)
	bus.NackNext(uint16(Address), 1)
	if _, err := d.Poll(); err != nil {
		t.Fatalf("single nack should be retried: %v", err)
	}
	bus.NackNext(uint16(Address), 2)
	ev, err := d.Poll()
	if ev != nil || errcode.Of(err) != errcode.BusNack {
		t.Fatalf("got %+v, %v", ev, err)
	}
}

func TestKindString(t *testing.T) {
	if Press.String() != "press" || Release.String() != "release" || Move.String() != "move" || Kind(9).String() != "unknown" {
		t.Fatal("kind names")
	}
}
