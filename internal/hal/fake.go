package hal

import (
	"errors"
	"sync"
)

// FakeBoard is a test double that records outputs and replays scripted inputs.
// It is safe for concurrent use because the controller, tick source and
// activity watcher all touch the board from their own goroutines.
type FakeBoard struct {
	mu sync.Mutex

	switches  Switches
	activity  bool
	relay     bool
	relayLog  []bool
	ledLog    []LEDState
	interrupt bool
	arms      int
	closed    bool
	edges     chan Edge

	// RelayError, if set, is returned by SetRelay.
	RelayError error
	// SwitchError, if set, is returned by ReadSwitches.
	SwitchError error
	// ArmError, if set, is returned by ArmTimer.
	ArmError error
}

// LEDState is one recorded LED output.
type LEDState struct {
	Green bool
	Red   bool
}

// NewFakeBoard creates a FakeBoard with the given switch positions.
func NewFakeBoard(sw Switches) *FakeBoard {
	return &FakeBoard{
		switches: sw,
		edges:    make(chan Edge, 1),
	}
}

// SetSwitches changes the scripted switch positions.
func (f *FakeBoard) SetSwitches(sw Switches) {
	f.mu.Lock()
	f.switches = sw
	f.mu.Unlock()
}

// SetActivityLevel changes the scripted activity line level.
func (f *FakeBoard) SetActivityLevel(v bool) {
	f.mu.Lock()
	f.activity = v
	f.mu.Unlock()
}

// Emit queues an edge the way the real edge handler does: at most one
// edge is pending and a newer edge replaces it. It reports whether a
// pending edge was replaced.
func (f *FakeBoard) Emit(e Edge) bool {
	return offerEdge(f.edges, e)
}

// SetRelay records a relay change.
func (f *FakeBoard) SetRelay(asserted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RelayError != nil {
		return f.RelayError
	}
	f.relay = asserted
	f.relayLog = append(f.relayLog, asserted)
	return nil
}

// SetActivityInterrupt records the edge detection state.
func (f *FakeBoard) SetActivityInterrupt(enabled bool) error {
	f.mu.Lock()
	f.interrupt = enabled
	f.mu.Unlock()
	return nil
}

// Edges delivers emitted edges.
func (f *FakeBoard) Edges() <-chan Edge {
	return f.edges
}

// ReadActivity returns the scripted activity level.
func (f *FakeBoard) ReadActivity() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity, nil
}

// ReadSwitches returns the scripted switch positions.
func (f *FakeBoard) ReadSwitches() (Switches, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SwitchError != nil {
		return Switches{}, f.SwitchError
	}
	return f.switches, nil
}

// SetLEDs records an LED change.
func (f *FakeBoard) SetLEDs(green, red bool) error {
	f.mu.Lock()
	f.ledLog = append(f.ledLog, LEDState{Green: green, Red: red})
	f.mu.Unlock()
	return nil
}

// ArmTimer counts watchdog re-arms.
func (f *FakeBoard) ArmTimer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ArmError != nil {
		return f.ArmError
	}
	f.arms++
	return nil
}

// Close marks the board closed and releases the relay.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	f.relay = false
	return nil
}

// RelayLog returns every relay change in order.
func (f *FakeBoard) RelayLog() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.relayLog...)
}

// Relay returns the current relay state.
func (f *FakeBoard) Relay() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relay
}

// LEDLog returns every LED change in order.
func (f *FakeBoard) LEDLog() []LEDState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LEDState(nil), f.ledLog...)
}

// InterruptEnabled reports the last edge detection state.
func (f *FakeBoard) InterruptEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interrupt
}

// Arms returns the number of watchdog re-arms.
func (f *FakeBoard) Arms() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.arms
}

// Closed reports whether Close was called.
func (f *FakeBoard) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
