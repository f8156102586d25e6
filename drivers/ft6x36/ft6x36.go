// Package ft6x36 is the touch client for FocalTech FT6x36 capacitive
// controllers. Poll performs exactly one bounded register read per call and
// turns the first touch point into an edge-style event.
package ft6x36

import (
	"watchcode-go/errcode"
	"watchcode-go/i2cbus"
	"watchcode-go/x/mathx"
)

const Address i2cbus.Address = 0x38

const (
	regTDStatus   = 0x02 // followed by P1_XH, P1_XL, P1_YH, P1_YL
	regThreshold  = 0x80
	regPeriodAct  = 0x88
	regChipID     = 0xA3
	maxTouches    = 2
	DefaultWidth  = 240
	DefaultHeight = 240
)

// Kind is the edge a touch event describes.
type Kind uint8

const (
	Press Kind = iota
	Release
	Move
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case Move:
		return "move"
	}
	return "unknown"
}

// Event is one touch report in panel coordinates.
type Event struct {
	Kind Kind
	X, Y uint16
}

// Config is optional. Zero fields keep the chip's or the driver's defaults.
type Config struct {
	Width, Height uint16
	Threshold     uint8 // TH_GROUP
	ActivePeriod  uint8 // PERIODACTIVE, report rate in active mode
}

type Device struct {
	bus  i2cbus.Client
	addr i2cbus.Address
	w, h uint16

	down  bool
	lastX uint16
	lastY uint16
	reg   [2]byte
	buf   [5]byte
}

func New(bus i2cbus.Client) *Device {
	return &Device{bus: bus, addr: Address, w: DefaultWidth, h: DefaultHeight}
}

// Configure applies cfg. Register writes happen only for non-zero fields.
func (d *Device) Configure(cfg Config) error {
	if cfg.Width > 0 {
		d.w = cfg.Width
	}
	if cfg.Height > 0 {
		d.h = cfg.Height
	}
	if cfg.Threshold != 0 {
		if err := d.writeReg(regThreshold, cfg.Threshold); err != nil {
			return err
		}
	}
	if cfg.ActivePeriod != 0 {
		if err := d.writeReg(regPeriodAct, cfg.ActivePeriod); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) ChipID() (uint8, error) {
	var r [1]byte
	if err := d.readRegs(regChipID, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// Poll reads the controller once. It returns nil when nothing changed.
//
// A contact seen without a preceding press-down (the press happened between
// polls) is reported as Press; a press-down while already down is a Move.
// When the touch count drops to zero after a contact, a Release is
// synthesised at the last known position.
func (d *Device) Poll() (*Event, error) {
	if err := d.readRegs(regTDStatus, d.buf[:]); err != nil {
		return nil, err
	}
	n := d.buf[0] & 0x0F
	if n == 0 || n > maxTouches {
		if d.down {
			d.down = false
			return &Event{Kind: Release, X: d.lastX, Y: d.lastY}, nil
		}
		return nil, nil
	}

	flag := d.buf[1] >> 6
	x := uint16(d.buf[1]&0x0F)<<8 | uint16(d.buf[2])
	y := uint16(d.buf[3]&0x0F)<<8 | uint16(d.buf[4])
	x = mathx.Min(x, d.w-1)
	y = mathx.Min(y, d.h-1)

	var k Kind
	switch flag {
	case 0, 2:
		if d.down {
			k = Move
		} else {
			k = Press
		}
		d.down = true
	case 1:
		if !d.down {
			return nil, nil
		}
		k = Release
		d.down = false
	default:
		return nil, nil
	}
	d.lastX, d.lastY = x, y
	return &Event{Kind: k, X: x, Y: y}, nil
}

func (d *Device) readRegs(reg uint8, out []byte) error {
	d.reg[0] = reg
	err := d.bus.WriteRead(d.addr, d.reg[:1], out)
	switch errcode.Of(err) {
	case errcode.BusTimeout, errcode.BusNack:
		err = d.bus.WriteRead(d.addr, d.reg[:1], out)
	}
	return err
}

func (d *Device) writeReg(reg, val uint8) error {
	d.reg[0], d.reg[1] = reg, val
	return d.bus.Write(d.addr, d.reg[:2])
}
