package app

import (
	"time"

	"watchcode-go/drivers/axp202"
	"watchcode-go/x/ramp"
)

// Backlight is the dimmable side of the power client.
type Backlight interface {
	SetBacklightLevel(level uint8) error
}

// FadeIn ramps the backlight from off to full over d, one step per level.
// Every wait goes through live, so a fade renews like any other wait.
func FadeIn(b Backlight, live Liveness, d, slice time.Duration) error {
	return ramp.Linear(0, axp202.MaxBacklight, d, axp202.MaxBacklight,
		func(w time.Duration) error { return live.SlicedWait(w, slice) },
		func(l uint16) error { return b.SetBacklightLevel(uint8(l)) })
}
