// Package axp202 is the power-management client for the X-Powers AXP202 PMIC.
//
// Every register access goes through an i2cbus.Client, so the driver never
// holds the bus and every call is bounded by the arbiter's timeout. Register
// reads are idempotent and are retried once on a bus timeout or nack; writes
// are never retried.
package axp202

import (
	"watchcode-go/errcode"
	"watchcode-go/i2cbus"
	"watchcode-go/x/mathx"
)

// Address is the fixed 7-bit bus address.
const Address i2cbus.Address = 0x35

// Registers.
const (
	regChargeStat  = 0x01
	regLDO234DC23  = 0x12
	regLDO24Volt   = 0x28
	regIRQEnable1  = 0x40
	regIRQStatus1  = 0x48
	regBatVoltH    = 0x78
	regBatVoltL    = 0x79
	regADCEnable1  = 0x82
	regFuelGauge   = 0xB9
)

// Bits.
const (
	chargingBit   = 1 << 6 // reg 0x01
	batPresentBit = 1 << 5 // reg 0x01
	ldo2EnableBit = 1 << 2 // reg 0x12
	adcBatVoltBit = 1 << 7 // reg 0x82
	gaugeMask     = 0x7F   // reg 0xB9
)

// MaxBacklight is the brightest SetBacklightLevel step (LDO2 at 3.3 V).
const MaxBacklight = 15

// IRQBanks is the number of interrupt enable/status register pairs.
const IRQBanks = 5

// Device is a logical client of the shared bus. It holds the arbiter, never
// the transport.
type Device struct {
	bus  i2cbus.Client
	addr i2cbus.Address
	w    [2]byte
}

func New(bus i2cbus.Client) *Device {
	return &Device{bus: bus, addr: Address}
}

// Configure enables the battery-voltage ADC.
func (d *Device) Configure() error {
	return d.setBits(regADCEnable1, adcBatVoltBit)
}

// BatteryVoltageMilliV returns the battery voltage in millivolts (12-bit
// ADC, 1.1 mV per LSB).
func (d *Device) BatteryVoltageMilliV() (uint16, error) {
	var r [2]byte
	if err := d.readRegs(regBatVoltH, r[:]); err != nil {
		return 0, err
	}
	raw := uint32(r[0])<<4 | uint32(r[1]&0x0F)
	return uint16(raw * 11 / 10), nil
}

// BatteryPercentage returns the fuel-gauge estimate, 0..100.
func (d *Device) BatteryPercentage() (uint8, error) {
	v, err := d.readReg(regFuelGauge)
	if err != nil {
		return 0, err
	}
	return mathx.Min(v&gaugeMask, 100), nil
}

func (d *Device) IsCharging() (bool, error) {
	v, err := d.readReg(regChargeStat)
	return v&chargingBit != 0, err
}

func (d *Device) BatteryPresent() (bool, error) {
	v, err := d.readReg(regChargeStat)
	return v&batPresentBit != 0, err
}

// SetBacklight switches LDO2, which feeds the panel backlight.
func (d *Device) SetBacklight(on bool) error {
	if on {
		return d.setBits(regLDO234DC23, ldo2EnableBit)
	}
	return d.clearBits(regLDO234DC23, ldo2EnableBit)
}

// SetBacklightLevel sets the LDO2 output, 1.8 V plus 100 mV per step, which
// dims the backlight. Levels above MaxBacklight are clamped. LDO4 is kept.
func (d *Device) SetBacklightLevel(level uint8) error {
	v, err := d.readReg(regLDO24Volt)
	if err != nil {
		return err
	}
	nv := mathx.Min(level, MaxBacklight)<<4 | v&0x0F
	if nv == v {
		return nil
	}
	return d.writeReg(regLDO24Volt, nv)
}

// EnableIRQ sets mask in interrupt enable bank (0..4).
func (d *Device) EnableIRQ(bank int, mask uint8) error {
	if err := checkBank(bank); err != nil {
		return err
	}
	return d.setBits(regIRQEnable1+uint8(bank), mask)
}

func (d *Device) DisableIRQ(bank int, mask uint8) error {
	if err := checkBank(bank); err != nil {
		return err
	}
	return d.clearBits(regIRQEnable1+uint8(bank), mask)
}

func (d *Device) IRQStatus(bank int) (uint8, error) {
	if err := checkBank(bank); err != nil {
		return 0, err
	}
	return d.readReg(regIRQStatus1 + uint8(bank))
}

// ClearIRQ acknowledges the bits in mask (write 1 to clear).
func (d *Device) ClearIRQ(bank int, mask uint8) error {
	if err := checkBank(bank); err != nil {
		return err
	}
	return d.writeReg(regIRQStatus1+uint8(bank), mask)
}

func checkBank(bank int) error {
	if !mathx.Between(bank, 0, IRQBanks-1) {
		return &errcode.E{C: errcode.Error, Op: "axp202_irq", Msg: "bank out of range"}
	}
	return nil
}

// ---- register helpers ----

func (d *Device) readReg(reg uint8) (uint8, error) {
	var r [1]byte
	if err := d.readRegs(reg, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Device) readRegs(reg uint8, out []byte) error {
	d.w[0] = reg
	err := d.bus.WriteRead(d.addr, d.w[:1], out)
	if retryable(err) {
		err = d.bus.WriteRead(d.addr, d.w[:1], out)
	}
	return err
}

func (d *Device) writeReg(reg, val uint8) error {
	d.w[0], d.w[1] = reg, val
	return d.bus.Write(d.addr, d.w[:2])
}

func (d *Device) setBits(reg, mask uint8) error {
	v, err := d.readReg(reg)
	if err != nil {
		return err
	}
	if v&mask == mask {
		return nil
	}
	return d.writeReg(reg, v|mask)
}

func (d *Device) clearBits(reg, mask uint8) error {
	v, err := d.readReg(reg)
	if err != nil {
		return err
	}
	if v&mask == 0 {
		return nil
	}
	return d.writeReg(reg, v&^mask)
}

func retryable(err error) bool {
	switch errcode.Of(err) {
	case errcode.BusTimeout, errcode.BusNack:
		return true
	}
	return false
}
