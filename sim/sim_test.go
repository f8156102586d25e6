package sim

import (
	"errors"
	"testing"
	"time"

	"watchcode-go/i2cbus"

	"tinygo.org/x/drivers/pcf8563"
)

func TestRegisterAutoIncrement(t *testing.T) {
	b := NewBus()
	a := NewAXP202()
	b.Attach(0x35, a)

	a.SetBattery(4180, 97, true)
	r := make([]byte, 2)
	if err := b.WriteRead(0x35, []byte{axpBatVoltH}, r, 10); err != nil {
		t.Fatal(err)
	}
	raw := uint32(r[0])<<4 | uint32(r[1])
	if got := raw * 11 / 10; got < 4175 || got > 4180 {
		t.Fatalf("voltage round trip = %d mV", got)
	}
	if a.Reg(axpChargeStat)&(1<<6) == 0 {
		t.Fatal("charging bit not set")
	}
}

func TestAXPIRQWriteOneToClear(t *testing.T) {
	b := NewBus()
	a := NewAXP202()
	b.Attach(0x35, a)

	a.RaiseIRQ(1, 0b1010)
	if err := b.Write(0x35, []byte{axpIRQStatus1 + 1, 0b0010}, 10); err != nil {
		t.Fatal(err)
	}
	if got := a.Reg(axpIRQStatus1 + 1); got != 0b1000 {
		t.Fatalf("status = %08b", got)
	}
}

func TestMissingDeviceNacks(t *testing.T) {
	b := NewBus()
	if err := b.Read(0x10, make([]byte, 1), 10); !errors.Is(err, i2cbus.ErrNack) {
		t.Fatalf("got %v", err)
	}
}

func TestInjectedFaults(t *testing.T) {
	b := NewBus()
	b.Attach(0x38, NewFT6x36())

	b.NackNext(0x38, 2)
	for i := 0; i < 2; i++ {
		if err := b.Read(0x38, make([]byte, 1), 10); !errors.Is(err, i2cbus.ErrNack) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
	if err := b.Read(0x38, make([]byte, 1), 10); err != nil {
		t.Fatalf("nack budget not consumed: %v", err)
	}

	b.SetDelay(0x38, 50*time.Millisecond)
	start := time.Now()
	if err := b.Read(0x38, make([]byte, 1), 5); !errors.Is(err, i2cbus.ErrTimeout) {
		t.Fatalf("got %v", err)
	}
	if time.Since(start) > 40*time.Millisecond {
		t.Fatal("delay ignored the timeout")
	}
	b.SetDelay(0x38, 0)

	release := b.Hang(0x38)
	done := make(chan error, 1)
	go func() { done <- b.Read(0x38, make([]byte, 1), 5) }()
	select {
	case <-done:
		t.Fatal("hung transfer returned")
	case <-time.After(30 * time.Millisecond):
	}
	release()
	release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("release did not unblock")
	}
	if b.Calls(0x38) != 5 {
		t.Fatalf("calls = %d", b.Calls(0x38))
	}
}

func TestTouchFlagSequence(t *testing.T) {
	f := NewFT6x36()
	read := func() (n, flag uint8) {
		r := make([]byte, 5)
		_ = f.Write([]byte{ftTDStatus})
		_ = f.Read(r)
		return r[0] & 0x0F, r[1] >> 6
	}

	f.Touch(300, 20)
	if n, flag := read(); n != 1 || flag != ftFlagDown {
		t.Fatalf("first read n=%d flag=%d", n, flag)
	}
	if _, flag := read(); flag != ftFlagContact {
		t.Fatalf("second read flag=%d", flag)
	}
	f.Lift()
	if n, flag := read(); n != 0 || flag != ftFlagUp {
		t.Fatalf("after lift n=%d flag=%d", n, flag)
	}
	if f.Reg(ftChipID) != 0x64 {
		t.Fatal("chip id")
	}
}

func TestRTCWithStockDriver(t *testing.T) {
	b := NewBus()
	start := time.Date(2024, time.March, 9, 7, 41, 12, 0, time.UTC)
	b.Attach(pcf8563.PCF8563_ADDR, NewPCF8563(nil, start))

	dev := pcf8563.New(b)
	got, err := dev.ReadTime()
	if err != nil {
		t.Fatal(err)
	}
	if got.Sub(start) < 0 || got.Sub(start) > 2*time.Second {
		t.Fatalf("read %v, want about %v", got, start)
	}

	set := time.Date(2025, time.June, 1, 23, 59, 0, 0, time.UTC)
	if err := dev.SetTime(set); err != nil {
		t.Fatal(err)
	}
	got, err = dev.ReadTime()
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2025 || got.Month() != time.June || got.Hour() != 23 || got.Minute() != 59 {
		t.Fatalf("after set: %v", got)
	}
}
