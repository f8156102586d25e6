//go:build tinygo && esp32

package main

import (
	"machine"

	"watchcode-go/config"
	"watchcode-go/liveness"

	"tinygo.org/x/drivers/st7789"
)

// T-Watch 2020: ST7789 on SPI, AXP202, FT6x36 and PCF8563 on I2C0. The
// backlight is fed by the AXP202's LDO2, so the panel has no BL pin.
//
// This board has no hardware watchdog: it runs liveness.Soft, which only
// counts missed deadlines. A hung loop is not reset.
const (
	pinSCK  = machine.GPIO18
	pinSDO  = machine.GPIO19
	pinCS   = machine.GPIO5
	pinDC   = machine.GPIO27
	pinRST  = machine.GPIO33
	pinSDA  = machine.GPIO21
	pinSCL  = machine.GPIO22
	pinNone = machine.NoPin
)

func tune(c config.Config) config.Config {
	c.TouchThreshold = 60
	return c
}

func setup(cfg config.Config) *board {
	_ = machine.I2C0.Configure(machine.I2CConfig{SDA: pinSDA, SCL: pinSCL, Frequency: 400 * machine.KHz})

	_ = machine.SPI2.Configure(machine.SPIConfig{
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinNone,
		Frequency: 10 * machine.MHz,
		Mode:      0,
	})
	panel := st7789.New(machine.SPI2, pinRST, pinDC, pinCS, pinNone)
	panel.Configure(st7789.Config{
		Width:     int16(cfg.PanelWidth),
		Height:    int16(cfg.PanelHeight),
		Rotation:  st7789.ROTATION_180,
		RowOffset: 80,
	})

	// TODO: switch to liveness.Machine once machine.Watchdog exists for esp32.
	return &board{
		name:  "twatch",
		i2c:   machine.I2C0,
		panel: &panel,
		sup:   liveness.NewSoft(nil, cfg.WatchdogTimeout()),
	}
}
