package i2cbus

import (
	"watchcode-go/errcode"

	"tinygo.org/x/drivers"
)

// Compile-time conformance with tinygo.org/x/drivers.I2C.
var _ drivers.I2C = i2cView{}

// i2cView adapts the arbiter to the TinyGo drivers.I2C shape so stock chip
// drivers can be clients. Every Tx goes through the arbiter's queue.
type i2cView struct{ a *Arbiter }

// I2C returns a drivers.I2C view of the arbiter.
func (a *Arbiter) I2C() drivers.I2C { return i2cView{a: a} }

func (v i2cView) Tx(addr uint16, w, r []byte) error {
	if addr > uint16(MaxAddress) {
		return &errcode.E{C: errcode.BusOther, Op: "tx", Addr: addr, Msg: "invalid_address"}
	}
	a7 := Address(addr)
	switch {
	case len(w) > 0 && len(r) > 0:
		return v.a.WriteRead(a7, w, r)
	case len(r) > 0:
		return v.a.Read(a7, r)
	default:
		// Zero-length writes are address probes.
		return v.a.Write(a7, w)
	}
}

// driversTransport drives any drivers.I2C (e.g. *machine.I2C) as a Transport.
// The underlying Tx has no per-call timeout; the arbiter's budget still bounds
// every caller.
type driversTransport struct{ bus drivers.I2C }

// FromDriversI2C wraps a configured TinyGo bus as a Transport.
func FromDriversI2C(bus drivers.I2C) Transport { return driversTransport{bus: bus} }

func (d driversTransport) Read(addr uint16, r []byte, _ int) error {
	return d.bus.Tx(addr, nil, r)
}

func (d driversTransport) Write(addr uint16, w []byte, _ int) error {
	return d.bus.Tx(addr, w, nil)
}

func (d driversTransport) WriteRead(addr uint16, w, r []byte, _ int) error {
	return d.bus.Tx(addr, w, r)
}
