package errcode

import (
	"errors"
	"strings"
)

// Code is a stable error identifier shared by the bus, display and liveness layers.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Bus transport taxonomy. Every fault leaving the arbiter is one of these.
	BusTimeout Code = "bus_timeout"
	BusNack    Code = "bus_nack"
	BusOther   Code = "bus_other"

	// Display layer (opaque).
	DrawError Code = "draw_error"

	// Liveness; unrecoverable.
	SupervisorFailure Code = "supervisor_failure"

	InvalidConfig Code = "invalid_config"

	Error Code = "error" // generic fallback
)

// E carries a code together with the operation, bus address and cause.
type E struct {
	C    Code
	Op   string
	Addr uint16 // 0 when not bus related
	Msg  string
	Err  error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s += " (" + e.Op
		if e.Addr != 0 {
			s += " @0x" + hex8(uint8(e.Addr))
		}
		s += ")"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	} else if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is matches a bare Code so that errors.Is(err, errcode.BusNack) works through wrapping.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
// Combined errors (anything with Unwrap() []error) report their first coded member.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	if m, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range m.Unwrap() {
			if c := Of(e); c != Error {
				return c
			}
		}
	}
	return Error
}

// IsBus reports whether err carries one of the bus transport codes.
func IsBus(err error) bool {
	switch Of(err) {
	case BusTimeout, BusNack, BusOther:
		return true
	}
	return false
}

// Fatal reports whether err must stop the control loop.
func Fatal(err error) bool {
	return err != nil && errors.Is(err, SupervisorFailure)
}

// MapTransportErr classifies a low-level transport error into the bus taxonomy.
// Extend the heuristics per platform/driver.
func MapTransportErr(err error) Code {
	if err == nil {
		return OK
	}
	switch c := Of(err); c {
	case BusTimeout, BusNack, BusOther:
		return c
	}
	var to interface{ Timeout() bool }
	if errors.As(err, &to) && to.Timeout() {
		return BusTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return BusTimeout
	// TinyGo machine: "I2C error: expected ACK not NACK"; Linux i2c-dev: "remote I/O error".
	case strings.Contains(msg, "nack"), strings.Contains(msg, "expected ack"),
		strings.Contains(msg, "remote i/o"), strings.Contains(msg, "no such device or address"):
		return BusNack
	}
	return BusOther
}

func hex8(b uint8) string {
	const hexd = "0123456789abcdef"
	return string([]byte{hexd[b>>4], hexd[b&0xF]})
}
