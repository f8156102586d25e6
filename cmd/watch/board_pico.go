//go:build tinygo && rp2040

package main

import (
	"machine"

	"watchcode-go/config"
	"watchcode-go/liveness"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/st7789"
)

// Bench rig: Pico with a 240x240 ST7789 on SPI1, the watch's I2C parts on
// I2C0 and a telemetry console on UART1.
const (
	pinSCK   = machine.GP10
	pinSDO   = machine.GP11
	pinCS    = machine.GP9
	pinDC    = machine.GP8
	pinRST   = machine.GP12
	pinBL    = machine.GP13
	pinSDA   = machine.GP4
	pinSCL   = machine.GP5
	pinUTX   = machine.GP20
	pinURX   = machine.GP21
	baudRate = 115200
)

func tune(c config.Config) config.Config { return c }

func setup(cfg config.Config) *board {
	_ = machine.I2C0.Configure(machine.I2CConfig{SDA: pinSDA, SCL: pinSCL, Frequency: 400 * machine.KHz})

	_ = machine.SPI1.Configure(machine.SPIConfig{
		SCK:       pinSCK,
		SDO:       pinSDO,
		Frequency: 62500000,
		Mode:      0,
	})
	panel := st7789.New(machine.SPI1, pinRST, pinDC, pinCS, pinBL)
	panel.Configure(st7789.Config{
		Width:  int16(cfg.PanelWidth),
		Height: int16(cfg.PanelHeight),
	})

	con := uartx.UART1
	_ = con.Configure(uartx.UARTConfig{BaudRate: baudRate, TX: pinUTX, RX: pinURX})

	wd := liveness.NewMachine(uint32(cfg.WatchdogTimeoutMS))
	return &board{
		name:    "pico",
		i2c:     machine.I2C0,
		panel:   &panel,
		sup:     wd,
		arm:     wd.Start,
		console: con,
	}
}
