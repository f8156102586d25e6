package sim

// AXP202 models the power-management IC at 0x35.
type AXP202 struct {
	regFile
}

const (
	axpChargeStat = 0x01
	axpIRQStatus1 = 0x48
	axpIRQBanks   = 5
	axpBatVoltH   = 0x78
	axpBatVoltL   = 0x79
	axpFuelGauge  = 0xB9
)

// NewAXP202 starts with a present, discharging battery at 3.9 V and 80 %.
func NewAXP202() *AXP202 {
	a := &AXP202{}
	a.store = a.storeReg
	a.SetBattery(3900, 80, false)
	return a
}

// SetBattery updates the ADC, fuel gauge and charge status registers.
func (a *AXP202) SetBattery(milliV uint16, percent uint8, charging bool) {
	raw := uint32(milliV) * 10 / 11
	a.mu.Lock()
	defer a.mu.Unlock()
	a.regs[axpBatVoltH] = byte(raw >> 4)
	a.regs[axpBatVoltL] = byte(raw & 0x0F)
	a.regs[axpFuelGauge] = percent & 0x7F
	st := a.regs[axpChargeStat] | 1<<5
	if charging {
		st |= 1 << 6
	} else {
		st &^= 1 << 6
	}
	a.regs[axpChargeStat] = st
}

// RaiseIRQ latches mask into status bank.
func (a *AXP202) RaiseIRQ(bank int, mask uint8) {
	a.mu.Lock()
	a.regs[axpIRQStatus1+bank] |= mask
	a.mu.Unlock()
}

// IRQ status registers are write-one-to-clear.
func (a *AXP202) storeReg(reg, val uint8) {
	if reg >= axpIRQStatus1 && reg < axpIRQStatus1+axpIRQBanks {
		a.regs[reg] &^= val
		return
	}
	a.regs[reg] = val
}
