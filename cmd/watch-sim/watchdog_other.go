//go:build !linux && !tinygo

package main

import (
	"time"

	"github.com/pkg/errors"
)

type nopWatchdog struct{}

func (nopWatchdog) Renew() error { return nil }
func (nopWatchdog) Close() error { return nil }

func openWatchdog(path string, _ time.Duration) (nopWatchdog, error) {
	return nopWatchdog{}, errors.Errorf("%s: watchdog devices are only supported on linux", path)
}
