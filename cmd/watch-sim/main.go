//go:build !tinygo

// Command watch-sim runs the watch control loop on a host, against simulated
// peripherals by default or a Linux I2C adapter with --bus. The panel is an
// in-memory framebuffer; --png saves the last frame.
package main

import (
	"context"
	"image/png"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"watchcode-go/config"
)

const (
	flagConfig   = "config"
	flagFrames   = "frames"
	flagBus      = "bus"
	flagTouch    = "touch-script"
	flagWatchdog = "watchdog-dev"
	flagPNG      = "png"
	flagDebug    = "debug"
)

func main() {
	app := &cli.App{
		Name:  "watch-sim",
		Usage: "run the watch control loop on a host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "overlay JSON configuration from `FILE`",
			},
			&cli.IntFlag{
				Name:    flagFrames,
				Aliases: []string{"n"},
				Usage:   "stop after `N` iterations; 0 runs until interrupted",
			},
			&cli.StringFlag{
				Name:  flagBus,
				Usage: "drive the Linux I2C bus `NAME` instead of the simulator",
			},
			&cli.StringFlag{
				Name:  flagTouch,
				Usage: "simulated touch `SCRIPT` (tap X Y, hold X Y N, wait N), or @FILE",
			},
			&cli.StringFlag{
				Name:  flagWatchdog,
				Usage: "also renew the kernel watchdog at `PATH`",
			},
			&cli.StringFlag{
				Name:  flagPNG,
				Usage: "write the last frame to `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	script, err := loadScript(c.String(flagTouch))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	r, err := newRig(cfg, rigOptions{Bus: c.String(flagBus), Watchdog: c.String(flagWatchdog)}, logger)
	if err != nil {
		return err
	}
	defer r.close()

	go r.monitor(ctx)
	err = r.run(ctx, c.Int(flagFrames), script)
	r.summary()

	if p := c.String(flagPNG); p != "" {
		if werr := writePNG(p, r); werr != nil {
			return werr
		}
		logger.Infow("frame written", "file", p)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "config")
	}
	defer f.Close()
	return config.Load(f)
}

func loadScript(v string) (touchScript, error) {
	if len(v) > 0 && v[0] == '@' {
		b, err := os.ReadFile(v[1:])
		if err != nil {
			return nil, errors.Wrap(err, "touch script")
		}
		v = string(b)
	}
	return parseScript(v)
}

func writePNG(path string, r *rig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, r.fb.Image()); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
