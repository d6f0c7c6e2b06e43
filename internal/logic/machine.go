package logic

import "time"

// Machine is the heartbeat state machine. It owns every piece of state shared
// between the tick source, the activity watcher and the decision loop.
// Machine is not safe for concurrent use; the caller provides the critical section.
type Machine struct {
	timing       Timing
	state        State
	ticks        uint32
	activity     bool
	armed        bool
	timeout      uint32
	progress     int
	counts       Counts
	lastActivity time.Time
	lastDecision time.Time
}

// NewMachine creates a machine in START. The activity flag starts set and the
// watcher disarmed, so the first WAIT cycle consumes it and arms the watcher.
func NewMachine(timing Timing) *Machine {
	if timing.ProgressBands <= 0 {
		timing.ProgressBands = DefaultProgressBands
	}
	return &Machine{
		timing:   timing,
		state:    StateStart,
		activity: true,
	}
}

// Tick records one Timebase period and returns the new TickCounter.
// The counter saturates instead of wrapping.
func (m *Machine) Tick() uint32 {
	if m.ticks < ^uint32(0) {
		m.ticks++
	}
	return m.ticks
}

// ObserveActivity records an activity edge. It returns false when the watcher
// is disarmed, in which case the edge is dropped. A recorded edge disarms the
// watcher until the flag has been consumed by Step.
func (m *Machine) ObserveActivity(at time.Time) bool {
	if !m.armed {
		return false
	}
	m.armed = false
	m.activity = true
	m.lastActivity = at
	return true
}

// Step runs one decision cycle and returns the decisions made, in order.
func (m *Machine) Step(in Input) []Event {
	m.lastDecision = in.Time
	timeout := in.Timeout
	if timeout == 0 {
		timeout = 1
	}
	m.timeout = timeout

	switch m.state {
	case StateStart:
		m.state = StateWait
		return []Event{m.event(in, EventStartup, StateStart, PulseNone, m.ticks)}
	case StateWait:
		return m.stepWait(in)
	case StateShutdown:
		return m.stepShutdown(in)
	case StateBoot:
		return []Event{m.boot(in)}
	}
	return nil
}

func (m *Machine) stepWait(in Input) []Event {
	if m.activity {
		ticks := m.ticks
		m.consumeActivity()
		m.counts.Activity++
		e := m.event(in, EventActivity, StateWait, PulseNone, ticks)
		e.Rearm = true
		return []Event{e}
	}

	if m.ticks > m.timeout {
		ticks := m.ticks
		m.ticks = 0
		m.progress = 0
		m.state = StateShutdown
		m.counts.Shutdowns++
		pulse := PulseForceOff
		if in.Mode == ModeReset {
			pulse = PulseReset
		}
		return []Event{m.event(in, EventTimeout, StateWait, pulse, ticks)}
	}

	band := ProgressBand(m.ticks, m.timeout, m.timing.ProgressBands)
	if band == m.progress {
		return nil
	}
	m.progress = band
	return []Event{m.event(in, EventProgress, StateWait, PulseNone, m.ticks)}
}

// stepShutdown gives activity priority over the grace interval so a host
// that came back on its own is never power-cycled a second time.
func (m *Machine) stepShutdown(in Input) []Event {
	if m.activity {
		ticks := m.ticks
		m.consumeActivity()
		m.state = StateWait
		m.counts.Recoveries++
		e := m.event(in, EventRecovered, StateShutdown, PulseNone, ticks)
		e.Rearm = true
		return []Event{e}
	}

	if m.ticks <= m.timing.GraceTicks() {
		return nil
	}

	grace := m.event(in, EventGrace, StateShutdown, PulseNone, m.ticks)
	m.state = StateBoot
	grace.To = StateBoot
	return []Event{grace, m.boot(in)}
}

// boot clears the flag and counters, requests the power-on pulse and
// returns to WAIT. In reset mode the host restarts by itself and no pulse is sent.
func (m *Machine) boot(in Input) Event {
	ticks := m.ticks
	m.consumeActivity()
	m.state = StateWait
	m.counts.Boots++
	pulse := PulsePowerOn
	if in.Mode == ModeReset {
		pulse = PulseNone
	}
	e := m.event(in, EventBoot, StateBoot, pulse, ticks)
	e.Rearm = true
	return e
}

// consumeActivity clears the flag before arming the watcher again.
func (m *Machine) consumeActivity() {
	m.activity = false
	m.ticks = 0
	m.progress = 0
	m.armed = true
}

func (m *Machine) event(in Input, typ EventType, from State, pulse Pulse, ticks uint32) Event {
	return Event{
		Timestamp: in.Time,
		Type:      typ,
		From:      from,
		To:        m.state,
		Pulse:     pulse,
		Ticks:     ticks,
		Timeout:   m.timeout,
		Progress:  m.progress,
	}
}

// State returns the current controller state.
func (m *Machine) State() State {
	return m.state
}

// Ticks returns the current TickCounter.
func (m *Machine) Ticks() uint32 {
	return m.ticks
}

// WatcherArmed reports whether the activity watcher may record edges.
func (m *Machine) WatcherArmed() bool {
	return m.armed
}

// Counts returns a copy of the decision counters.
func (m *Machine) Counts() Counts {
	return m.counts
}

// Timing returns the machine's timing configuration.
func (m *Machine) Timing() Timing {
	return m.timing
}

// Snapshot returns a copy of the machine state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:        m.state,
		Ticks:        m.ticks,
		Timeout:      m.timeout,
		Progress:     m.progress,
		Activity:     m.activity,
		WatcherArmed: m.armed,
		Counts:       m.counts,
		LastActivity: m.lastActivity,
		LastDecision: m.lastDecision,
	}
}
