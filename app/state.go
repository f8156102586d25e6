package app

import (
	"watchcode-go/drivers/ft6x36"
	"watchcode-go/x/mathx"
)

// State is the screen currently shown. There is no terminal state.
type State uint8

const (
	Launcher State = iota
	Settings
	Battery
)

func (s State) String() string {
	switch s {
	case Launcher:
		return "launcher"
	case Settings:
		return "settings"
	case Battery:
		return "battery"
	}
	return "unknown"
}

// Rect is an inclusive rectangle in panel coordinates.
type Rect struct {
	X0, Y0, X1, Y1 uint16
}

func (r Rect) Contains(x, y uint16) bool {
	return mathx.Between(x, r.X0, r.X1) && mathx.Between(y, r.Y0, r.Y1)
}

// Touch regions on the 240x240 panel.
var (
	Button1 = Rect{X0: 0, Y0: 0, X1: 99, Y1: 99}           // x < 100, y < 100
	Button2 = Rect{X0: 141, Y0: 0, X1: 0xFFFF, Y1: 99}     // x > 140, y < 100
	Back    = Rect{X0: 0, Y0: 201, X1: 0xFFFF, Y1: 0xFFFF} // y > 200
)

// Next is the transition function. Only presses inside a region of the
// current screen change state.
func Next(s State, ev *ft6x36.Event) State {
	if ev == nil || ev.Kind != ft6x36.Press {
		return s
	}
	switch s {
	case Launcher:
		if Button1.Contains(ev.X, ev.Y) {
			return Settings
		}
		if Button2.Contains(ev.X, ev.Y) {
			return Battery
		}
	case Settings, Battery:
		if Back.Contains(ev.X, ev.Y) {
			return Launcher
		}
	}
	return s
}
