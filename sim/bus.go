// Package sim is a host-side model of the watch's shared I²C bus: a
// Transport with register-level models of the AXP202, FT6x36 and PCF8563,
// and per-address fault injection (nack, delay, hang).
package sim

import (
	"sync"
	"time"

	"watchcode-go/i2cbus"
)

// Device is a simulated peripheral. Write receives the full write phase
// (register pointer first); Read fills r from the current pointer.
type Device interface {
	Write(w []byte) error
	Read(r []byte) error
}

type fault struct {
	nacks int
	delay time.Duration
	hang  chan struct{}
}

// Bus implements i2cbus.Transport and drivers.I2C.
type Bus struct {
	mu     sync.Mutex
	devs   map[uint16]Device
	faults map[uint16]*fault
	calls  map[uint16]int
}

func NewBus() *Bus {
	return &Bus{
		devs:   make(map[uint16]Device),
		faults: make(map[uint16]*fault),
		calls:  make(map[uint16]int),
	}
}

// Attach places d at addr, replacing any device already there.
func (b *Bus) Attach(addr uint16, d Device) {
	b.mu.Lock()
	b.devs[addr] = d
	b.mu.Unlock()
}

// NackNext makes the next n transfers to addr fail with a nack.
func (b *Bus) NackNext(addr uint16, n int) {
	b.mu.Lock()
	b.fault(addr).nacks = n
	b.mu.Unlock()
}

// SetDelay adds d to every transfer to addr. A delay longer than the
// caller's timeout ends in ErrTimeout after the timeout.
func (b *Bus) SetDelay(addr uint16, d time.Duration) {
	b.mu.Lock()
	b.fault(addr).delay = d
	b.mu.Unlock()
}

// Hang blocks every transfer to addr, ignoring timeouts, until release is
// called.
func (b *Bus) Hang(addr uint16) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.fault(addr).hang = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if f := b.faults[addr]; f != nil && f.hang == ch {
				f.hang = nil
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many transfers addr has seen.
func (b *Bus) Calls(addr uint16) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[addr]
}

func (b *Bus) fault(addr uint16) *fault {
	f := b.faults[addr]
	if f == nil {
		f = &fault{}
		b.faults[addr] = f
	}
	return f
}

// begin applies any injected fault and returns the device to talk to.
func (b *Bus) begin(addr uint16, timeoutMS int) (Device, error) {
	b.mu.Lock()
	b.calls[addr]++
	dev := b.devs[addr]
	var hang chan struct{}
	var delay time.Duration
	if f := b.faults[addr]; f != nil {
		if f.nacks > 0 {
			f.nacks--
			b.mu.Unlock()
			return nil, i2cbus.ErrNack
		}
		hang, delay = f.hang, f.delay
	}
	b.mu.Unlock()

	if hang != nil {
		<-hang
	}
	if delay > 0 {
		limit := time.Duration(timeoutMS) * time.Millisecond
		if timeoutMS > 0 && delay > limit {
			time.Sleep(limit)
			return nil, i2cbus.ErrTimeout
		}
		time.Sleep(delay)
	}
	if dev == nil {
		return nil, i2cbus.ErrNack
	}
	return dev, nil
}

func (b *Bus) Read(addr uint16, r []byte, timeoutMS int) error {
	dev, err := b.begin(addr, timeoutMS)
	if err != nil {
		return err
	}
	return dev.Read(r)
}

func (b *Bus) Write(addr uint16, w []byte, timeoutMS int) error {
	dev, err := b.begin(addr, timeoutMS)
	if err != nil {
		return err
	}
	return dev.Write(w)
}

func (b *Bus) WriteRead(addr uint16, w, r []byte, timeoutMS int) error {
	dev, err := b.begin(addr, timeoutMS)
	if err != nil {
		return err
	}
	if err := dev.Write(w); err != nil {
		return err
	}
	return dev.Read(r)
}

// Tx is the drivers.I2C form, without a timeout.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(r) == 0:
		return b.Write(addr, w, 0)
	case len(w) == 0:
		return b.Read(addr, r, 0)
	}
	return b.WriteRead(addr, w, r, 0)
}
