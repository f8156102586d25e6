package sim

import "sync"

// regFile is an 8-bit register map with an auto-incrementing pointer, the
// protocol shared by all three chips on the bus.
type regFile struct {
	mu   sync.Mutex
	regs [256]byte
	ptr  uint8

	store   func(reg, val uint8)     // nil: plain store
	refresh func(first uint8, n int) // before a read burst
	read    func(first uint8, n int) // after a read burst
	written func(first uint8, n int) // after a write burst
}

func (f *regFile) Write(w []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(w) == 0 {
		return nil // address probe
	}
	f.ptr = w[0]
	first := f.ptr
	for _, v := range w[1:] {
		if f.store != nil {
			f.store(f.ptr, v)
		} else {
			f.regs[f.ptr] = v
		}
		f.ptr++
	}
	if f.written != nil && len(w) > 1 {
		f.written(first, len(w)-1)
	}
	return nil
}

func (f *regFile) Read(r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	first := f.ptr
	if f.refresh != nil {
		f.refresh(first, len(r))
	}
	for i := range r {
		r[i] = f.regs[f.ptr]
		f.ptr++
	}
	if f.read != nil {
		f.read(first, len(r))
	}
	return nil
}

// Reg returns the current value of reg.
func (f *regFile) Reg(reg uint8) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[reg]
}

// SetReg overwrites reg without side effects.
func (f *regFile) SetReg(reg, val uint8) {
	f.mu.Lock()
	f.regs[reg] = val
	f.mu.Unlock()
}

// covers reports whether [first, first+n) includes reg.
func covers(first uint8, n int, reg uint8) bool {
	return int(reg) >= int(first) && int(reg) < int(first)+n
}
