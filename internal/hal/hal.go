// Package hal provides the narrow hardware interface of the watchdog board.
// The real implementation uses the Linux GPIO character device and /dev/watchdog.
// The fake implementation allows testing without hardware.
package hal

import "time"

// Board is the hardware seen by the watchdog controller.
type Board interface {
	// SetRelay asserts or releases the relay across the host's power/reset header.
	// The line is active-low; asserted drives it low.
	SetRelay(asserted bool) error

	// SetActivityInterrupt enables or disables edge detection on the activity input.
	SetActivityInterrupt(enabled bool) error

	// Edges delivers activity edges. At most one edge is pending; a newer
	// edge replaces it.
	Edges() <-chan Edge

	// ReadActivity returns the current logical level of the activity input.
	ReadActivity() (bool, error)

	// ReadSwitches returns the current DIP switch positions.
	ReadSwitches() (Switches, error)

	// SetLEDs drives the status LEDs. Both on renders orange.
	SetLEDs(green, red bool) error

	// ArmTimer re-arms the hardware watchdog. If it is not re-armed within
	// its timeout the board resets.
	ArmTimer() error

	// Close releases hardware resources and leaves the relay released.
	Close() error
}

// Edge is one detected change on the activity input.
type Edge struct {
	Time   time.Time
	Rising bool
}

// offerEdge queues e on a one-slot channel, replacing any pending edge so the
// newest one always survives. It reports whether a pending edge was replaced.
func offerEdge(ch chan Edge, e Edge) bool {
	replaced := false
	for {
		select {
		case ch <- e:
			return replaced
		default:
		}
		select {
		case <-ch:
			replaced = true
		default:
		}
	}
}

// Switches is the decoded DIP switch state.
type Switches struct {
	// Selection is the value of DIP switches #1..#3, switch #1 is the MSB.
	Selection int
	// ResetMode is DIP switch #4: the relay is wired to the reset switch
	// instead of the power switch.
	ResetMode bool
}

// Pin definitions (BCM numbering)
const (
	DefaultPinActivity = 17 // HDD LED from host
	DefaultPinRelay    = 27 // solid-state relay, active-low
	DefaultPinLEDGreen = 22
	DefaultPinLEDRed   = 23
	DefaultPinDIP1     = 5 // MSB
	DefaultPinDIP2     = 6
	DefaultPinDIP3     = 13
	DefaultPinDIP4     = 19 // power (off) / reset (on) mode
)

// Pins maps board functions to line offsets. A negative LED pin disables
// the status LEDs.
type Pins struct {
	Activity int
	Relay    int
	LEDGreen int
	LEDRed   int
	DIP      [3]int
	Mode     int
}

// DefaultPins returns the default wiring.
func DefaultPins() Pins {
	return Pins{
		Activity: DefaultPinActivity,
		Relay:    DefaultPinRelay,
		LEDGreen: DefaultPinLEDGreen,
		LEDRed:   DefaultPinLEDRed,
		DIP:      [3]int{DefaultPinDIP1, DefaultPinDIP2, DefaultPinDIP3},
		Mode:     DefaultPinDIP4,
	}
}

// HasLEDs reports whether status LEDs are wired.
func (p Pins) HasLEDs() bool {
	return p.LEDGreen >= 0 && p.LEDRed >= 0
}

// Options configures the real board.
type Options struct {
	Chip     string
	Pins     Pins
	Debounce time.Duration // kernel debounce on the activity input, 0 disables

	// WatchdogDevice is the hardware watchdog path; empty disables it.
	WatchdogDevice  string
	WatchdogTimeout time.Duration
}

// DecodeSwitches converts logical DIP values (1 = switch on) into Switches.
func DecodeSwitches(dip [3]int, mode int) Switches {
	sel := 0
	for _, v := range dip {
		sel <<= 1
		if v != 0 {
			sel |= 1
		}
	}
	return Switches{Selection: sel, ResetMode: mode != 0}
}
