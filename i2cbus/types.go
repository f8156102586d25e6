// Package i2cbus serialises all traffic on one shared two-wire bus.
//
// A single Arbiter owns the physical Transport for its whole lifetime. Logical
// clients (power controller, touch controller, RTC) hold the Arbiter, never the
// Transport, and every request is bounded by one timeout budget.
package i2cbus

import "errors"

// Address is a 7-bit device address.
type Address uint8

// MaxAddress is the highest valid 7-bit address.
const MaxAddress Address = 0x7F

// Transport is the physical bus capability. Implementations block for at most
// timeoutMS (where the hardware allows it) and return a transport-level error.
// Only the Arbiter's worker calls it.
type Transport interface {
	Read(addr uint16, r []byte, timeoutMS int) error
	Write(addr uint16, w []byte, timeoutMS int) error
	WriteRead(addr uint16, w, r []byte, timeoutMS int) error
}

// Sentinel transport errors. Transports may return these (or wrap them) to get
// an exact classification instead of the message heuristics in errcode.
var (
	ErrNack    = errors.New("i2c: nack")
	ErrTimeout = errors.New("i2c: timeout")
)

type OpKind uint8

const (
	OpWrite OpKind = iota
	OpRead
)

func (k OpKind) String() string {
	if k == OpRead {
		return "read"
	}
	return "write"
}

// Op is one step of a Transaction. For OpRead, Buf is filled on success.
type Op struct {
	Kind OpKind
	Buf  []byte
}

func ReadOp(buf []byte) Op  { return Op{Kind: OpRead, Buf: buf} }
func WriteOp(buf []byte) Op { return Op{Kind: OpWrite, Buf: buf} }

// Client is what logical peripheral drivers consume. *Arbiter implements it.
type Client interface {
	Read(addr Address, out []byte) error
	Write(addr Address, payload []byte) error
	WriteRead(addr Address, payload, out []byte) error
	Transaction(addr Address, ops []Op) error
}

// Stats are cumulative counters since construction.
type Stats struct {
	Submitted uint32
	Completed uint32
	Timeouts  uint32
	Nacks     uint32
	Others    uint32
	Abandoned uint32 // timed out while queued; never executed
}
