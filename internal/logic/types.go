// Package logic contains the pure heartbeat state machine of the watchdog.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the controller state of the heartbeat state machine.
type State string

const (
	StateStart    State = "START"
	StateWait     State = "WAIT"
	StateShutdown State = "SHUTDOWN"
	StateBoot     State = "BOOT"
)

// EventType identifies a decision made by the state machine.
type EventType string

const (
	EventStartup   EventType = "STARTUP"
	EventActivity  EventType = "ACTIVITY"
	EventProgress  EventType = "PROGRESS"
	EventTimeout   EventType = "TIMEOUT"
	EventRecovered EventType = "RECOVERED"
	EventGrace     EventType = "GRACE_ELAPSED"
	EventBoot      EventType = "BOOT"
)

// Pulse is a relay action requested by the state machine.
type Pulse string

const (
	PulseNone     Pulse = ""
	PulseForceOff Pulse = "FORCE_OFF" // long hold on the power switch
	PulsePowerOn  Pulse = "POWER_ON"  // short press on the power switch
	PulseReset    Pulse = "RESET"     // short press on the reset switch
)

// Mode selects how the relay is wired to the host (DIP switch #4).
type Mode string

const (
	ModePower Mode = "POWER"
	ModeReset Mode = "RESET"
)

// Event is a single state machine decision to be acted on and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	From      State
	To        State
	Pulse     Pulse
	Ticks     uint32 // TickCounter value that triggered the decision
	Timeout   uint32 // ConfiguredTimeout in ticks at decision time
	Progress  int    // progress band after the decision
	Rearm     bool   // activity watcher must be re-enabled after any pulse
	CycleID   string // correlates the events of one power cycle, set by the caller
}

// Input is one decision cycle's view of the outside world.
type Input struct {
	Time    time.Time
	Timeout uint32 // ConfiguredTimeout in ticks, recomputed by the caller each cycle
	Mode    Mode
}

// Counts tracks decisions since the monitor started.
type Counts struct {
	Activity   int
	Shutdowns  int
	Boots      int
	Recoveries int
}

// PulseSpec describes a physical button-press emulation.
type PulseSpec struct {
	Hold    time.Duration // force-off hold, longer than the host's long-press threshold
	Release time.Duration // wait after releasing the force-off hold
	Assert  time.Duration // short press for power-on or reset
}

// Snapshot is a copy of the machine state.
type Snapshot struct {
	State        State
	Ticks        uint32
	Timeout      uint32
	Progress     int
	Activity     bool
	WatcherArmed bool
	Counts       Counts
	LastActivity time.Time
	LastDecision time.Time
}
