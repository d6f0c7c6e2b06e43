package logic

import "time"

// DefaultProgressBands is the number of idle-progress bands shown on the LEDs.
const DefaultProgressBands = 4

// Timing is the construction-time timing configuration of the watchdog.
type Timing struct {
	// TickPeriod is the Timebase interval; one tick is the unit of idle accounting.
	TickPeriod time.Duration
	// IdleUnit is the duration of one timeout table unit.
	IdleUnit time.Duration
	// Grace is how long SHUTDOWN waits for the host before a boot pulse.
	Grace time.Duration
	// Pulse describes the relay button presses.
	Pulse PulseSpec
	// ProgressBands quantizes idle progress for display.
	ProgressBands int
}

// GraceTicks returns the grace interval rounded up to whole ticks, at least 1.
func (t Timing) GraceTicks() uint32 {
	if t.TickPeriod <= 0 || t.Grace <= 0 {
		return 1
	}
	n := (t.Grace + t.TickPeriod - 1) / t.TickPeriod
	if n < 1 {
		return 1
	}
	return uint32(n)
}

// TimeoutTable maps a switch selection to a timeout in idle units.
type TimeoutTable []uint32

// DefaultTimeoutTable gives (1 + switch value) units for the three DIP switches.
var DefaultTimeoutTable = TimeoutTable{1, 2, 3, 4, 5, 6, 7, 8}

// Units returns the table entry for selection. Selections past the end
// of the table use the last entry; an empty table yields 1.
func (tt TimeoutTable) Units(selection int) uint32 {
	if len(tt) == 0 {
		return 1
	}
	if selection < 0 {
		selection = 0
	}
	if selection >= len(tt) {
		selection = len(tt) - 1
	}
	if tt[selection] == 0 {
		return 1
	}
	return tt[selection]
}

// Ticks returns ConfiguredTimeout for the given switch selection:
// (units × IdleUnit) ÷ TickPeriod, rounded down. The product is taken before
// dividing so an idle unit that is not a whole number of ticks loses at most
// one tick overall. The result is always positive.
func (tt TimeoutTable) Ticks(selection int, timing Timing) uint32 {
	if timing.TickPeriod <= 0 || timing.IdleUnit <= 0 {
		return 1
	}
	n := uint64(tt.Units(selection)) * uint64(timing.IdleUnit) / uint64(timing.TickPeriod)
	if n < 1 {
		return 1
	}
	if n > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

// ProgressBand quantizes ticks/timeout into [0, bands].
func ProgressBand(ticks, timeout uint32, bands int) int {
	if bands <= 0 || timeout == 0 {
		return 0
	}
	band := uint64(ticks) * uint64(bands) / uint64(timeout)
	if band > uint64(bands) {
		return bands
	}
	return int(band)
}
