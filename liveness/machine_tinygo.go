//go:build tinygo && !esp32

package liveness

import "machine"

// Machine drives the chip's hardware watchdog through machine.Watchdog.
type Machine struct {
	timeoutMS uint32
	started   bool
}

func NewMachine(timeoutMS uint32) *Machine {
	return &Machine{timeoutMS: timeoutMS}
}

// Start configures and arms the watchdog. From here on the chip resets if
// Renew is not called within the timeout.
func (m *Machine) Start() error {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: m.timeoutMS}); err != nil {
		return err
	}
	if err := machine.Watchdog.Start(); err != nil {
		return err
	}
	m.started = true
	return nil
}

func (m *Machine) Renew() error {
	if !m.started {
		return ErrNotStarted
	}
	machine.Watchdog.Update()
	return nil
}
