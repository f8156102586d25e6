//go:build linux && !tinygo

package main

import (
	"time"

	"github.com/pkg/errors"

	"watchcode-go/liveness"
)

// openWatchdog arms the kernel watchdog. The device counts whole seconds, so
// the timeout is rounded up.
func openWatchdog(path string, timeout time.Duration) (*liveness.DevWatchdog, error) {
	wd, err := liveness.OpenDevWatchdog(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	sec := int((timeout + time.Second - 1) / time.Second)
	if err := wd.SetTimeout(sec); err != nil {
		_ = wd.Close()
		return nil, errors.Wrap(err, "set watchdog timeout")
	}
	return wd, nil
}
