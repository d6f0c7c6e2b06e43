package monitor

import (
	"context"
	"log"
	"time"
)

// RunTimebase is the periodic tick source. On every tick it re-arms the
// hardware watchdog first, then runs onTick. Re-arming comes first so a
// long pulse holding the critical section never starves the watchdog; a
// decision loop that hangs inside the critical section blocks onTick, no
// further ticks are read and the hardware resets the monitor.
func RunTimebase(ctx context.Context, tick <-chan time.Time, arm func() error, onTick func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := arm(); err != nil {
				log.Printf("timebase: re-arm failed: %v", err)
			}
			onTick()
		}
	}
}
