//go:build linux

package hal

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// watchdogDevice is the kernel hardware watchdog. Any write re-arms it.
type watchdogDevice struct {
	f *os.File
}

func openWatchdog(path string, timeout time.Duration) (*watchdogDevice, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		secs := int((timeout + time.Second - 1) / time.Second)
		if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
			f.Close()
			return nil, fmt.Errorf("set timeout %ds: %w", secs, err)
		}
	}
	return &watchdogDevice{f: f}, nil
}

func (w *watchdogDevice) keepalive() error {
	if _, err := w.f.Write([]byte{0}); err != nil {
		return fmt.Errorf("watchdog keepalive: %w", err)
	}
	return nil
}

// close writes the magic character so a clean exit does not reset the board.
func (w *watchdogDevice) close() error {
	if _, err := w.f.Write([]byte("V")); err != nil {
		w.f.Close()
		return fmt.Errorf("watchdog magic close: %w", err)
	}
	return w.f.Close()
}
