package sim

// FT6x36 models the touch controller at 0x38. Only touch point 1 is modelled.
type FT6x36 struct {
	regFile
}

const (
	ftTDStatus = 0x02
	ftP1XH     = 0x03
	ftChipID   = 0xA3

	ftFlagDown    = 0
	ftFlagUp      = 1
	ftFlagContact = 2
)

func NewFT6x36() *FT6x36 {
	f := &FT6x36{}
	f.regs[ftChipID] = 0x64
	f.read = f.afterRead
	return f
}

// Touch puts a finger down (or moves it) at x, y.
func (f *FT6x36) Touch(x, y uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag := uint8(ftFlagDown)
	if f.regs[ftTDStatus]&0x0F != 0 {
		flag = ftFlagContact
	}
	f.setPoint(1, flag, x, y)
}

// Lift removes the finger. Coordinates keep their last value.
func (f *FT6x36) Lift() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[ftTDStatus] = 0
	f.regs[ftP1XH] = ftFlagUp<<6 | f.regs[ftP1XH]&0x0F
}

func (f *FT6x36) setPoint(n, flag uint8, x, y uint16) {
	f.regs[ftTDStatus] = n
	f.regs[ftP1XH] = flag<<6 | byte(x>>8)&0x0F
	f.regs[ftP1XH+1] = byte(x)
	f.regs[ftP1XH+2] = byte(y>>8) & 0x0F
	f.regs[ftP1XH+3] = byte(y)
}

// The press-down flag is reported once; later reads see contact.
func (f *FT6x36) afterRead(first uint8, n int) {
	if covers(first, n, ftP1XH) && f.regs[ftTDStatus] != 0 && f.regs[ftP1XH]>>6 == ftFlagDown {
		f.regs[ftP1XH] = ftFlagContact<<6 | f.regs[ftP1XH]&0x0F
	}
}
