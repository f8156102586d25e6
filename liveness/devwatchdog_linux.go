//go:build linux && !tinygo

package liveness

import (
	"sync"

	"golang.org/x/sys/unix"
)

// DevWatchdog keeps a Linux watchdog device (usually /dev/watchdog) alive.
// Opening the device arms it.
type DevWatchdog struct {
	mu sync.Mutex
	fd int
}

// OpenDevWatchdog opens and arms the device at path.
func OpenDevWatchdog(path string) (*DevWatchdog, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &DevWatchdog{fd: fd}, nil
}

// SetTimeout asks the driver for a new timeout in whole seconds.
func (w *DevWatchdog) SetTimeout(sec int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd < 0 {
		return ErrNotStarted
	}
	return unix.IoctlSetPointerInt(w.fd, unix.WDIOC_SETTIMEOUT, sec)
}

func (w *DevWatchdog) Renew() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd < 0 {
		return ErrNotStarted
	}
	_, err := unix.Write(w.fd, []byte{0})
	return err
}

// Close disarms the watchdog with the magic 'V' before closing, where the
// driver supports it.
func (w *DevWatchdog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd < 0 {
		return nil
	}
	_, _ = unix.Write(w.fd, []byte{'V'})
	err := unix.Close(w.fd)
	w.fd = -1
	return err
}
