//go:build !tinygo

package i2cbus

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// PeriphTransport drives a Linux I²C adapter through periph.io. The kernel
// driver applies its own adapter timeout; the arbiter budget bounds callers.
type PeriphTransport struct {
	bus i2c.BusCloser
}

// OpenPeriph initialises the host drivers and opens the named bus ("" picks
// the first one, "1" is /dev/i2c-1). hz of 0 keeps the adapter's speed.
func OpenPeriph(name string, hz int64) (*PeriphTransport, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	if hz > 0 {
		if err := b.SetSpeed(physic.Frequency(hz) * physic.Hertz); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	return &PeriphTransport{bus: b}, nil
}

func (p *PeriphTransport) String() string { return p.bus.String() }

func (p *PeriphTransport) Read(addr uint16, r []byte, _ int) error {
	return p.bus.Tx(addr, nil, r)
}

func (p *PeriphTransport) Write(addr uint16, w []byte, _ int) error {
	return p.bus.Tx(addr, w, nil)
}

func (p *PeriphTransport) WriteRead(addr uint16, w, r []byte, _ int) error {
	return p.bus.Tx(addr, w, r)
}

func (p *PeriphTransport) Close() error { return p.bus.Close() }
