package app

import (
	"watchcode-go/display"
	"watchcode-go/x/conv"

	"go.uber.org/multierr"
)

// Layout of the 240x240 panel. Text y values are baselines.
const (
	panelW   = 240
	panelH   = 240
	statusH  = 20
	statusY  = 14
	timeX    = 4
	percentX = 196
	backTop  = 204
)

func (a *App) drawTime() error {
	t, err := a.d.Clock.Now()
	if err != nil {
		return err
	}
	s := conv.Clock(t.Hour(), t.Minute())
	if s == a.shownT {
		return nil
	}
	if err := a.d.Display.DrawText(timeX, statusY, s); err != nil {
		return err
	}
	a.shownT = s
	return nil
}

func (a *App) drawPercent() error {
	pct, err := a.d.Power.BatteryPercentage()
	if err != nil {
		return err
	}
	a.publish(topicPercent, pct, true)
	s := string(append(conv.AppendUint(nil, uint64(pct)), '%'))
	if s == a.shownB {
		return nil
	}
	if err := a.d.Display.DrawText(percentX, statusY, s); err != nil {
		return err
	}
	a.shownB = s
	return nil
}

// render draws the body. Static parts are drawn only when changed is set;
// live values every iteration. A non-nil fatal means the iteration must stop.
func (a *App) render(changed bool) (errs, fatal error) {
	dsp := a.d.Display
	if changed {
		errs = multierr.Append(errs, dsp.FillRect(0, statusH, panelW, panelH-statusH, display.Black))
	}
	switch a.state {
	case Launcher:
		if changed {
			errs = multierr.Combine(errs,
				dsp.FillRect(8, 28, 84, 64, display.Grey),
				dsp.DrawText(16, 64, "Settings"),
				dsp.FillRect(148, 28, 84, 64, display.Grey),
				dsp.DrawText(160, 64, "Battery"),
				dsp.DrawText(8, 140, "Tap a button"),
			)
		}
	case Settings:
		if changed {
			errs = multierr.Combine(errs, dsp.DrawText(8, 40, "Settings"), a.drawBack())
		}
		if a.d.BusStats != nil {
			st := a.d.BusStats()
			errs = multierr.Combine(errs,
				dsp.DrawText(8, 70, "bus ok "+utoa(st.Completed)),
				dsp.DrawText(8, 90, "timeouts "+utoa(st.Timeouts)),
				dsp.DrawText(8, 110, "nacks "+utoa(st.Nacks)),
			)
		}
	case Battery:
		if changed {
			errs = multierr.Combine(errs, dsp.DrawText(8, 40, "Battery"), a.drawBack())
		}
		e, f := a.renderBattery()
		errs = multierr.Append(errs, e)
		if f != nil {
			return errs, f
		}
	}
	return errs, nil
}

// renderBattery reads voltage, percentage and charge state with a renewal
// between each read. Each failed read skips only its own line.
func (a *App) renderBattery() (errs, fatal error) {
	dsp := a.d.Display
	bat := a.lastBat

	if mv, err := a.d.Power.BatteryVoltageMilliV(); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		bat.MilliV = mv
		errs = multierr.Append(errs, dsp.DrawText(8, 80, utoa(uint32(mv))+" mV  "))
	}

	if err := a.d.Live.Renew(); err != nil {
		return errs, err
	}

	if pct, err := a.d.Power.BatteryPercentage(); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		bat.Percent = pct
		errs = multierr.Append(errs, dsp.DrawText(8, 110, utoa(uint32(pct))+" %  "))
	}
	if err := a.d.Live.Renew(); err != nil {
		return errs, err
	}
	if chg, err := a.d.Power.IsCharging(); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		bat.Charging = chg
		label := "on battery"
		if chg {
			label = "charging  "
		}
		errs = multierr.Append(errs, dsp.DrawText(8, 140, label))
	}

	if bat != a.lastBat {
		a.lastBat = bat
		a.publish(topicBattery, bat, true)
	}
	return errs, nil
}

func (a *App) drawBack() error {
	return multierr.Append(
		a.d.Display.FillRect(0, backTop, panelW, panelH-backTop, display.Grey),
		a.d.Display.DrawText(8, 226, "< Back"),
	)
}

func utoa(n uint32) string {
	var b [10]byte
	return string(conv.Utoa(b[:], uint64(n)))
}
