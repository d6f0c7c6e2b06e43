package logic

import (
	"testing"
	"time"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// testTiming gives 60 ticks per unit and a 3-tick grace interval.
func testTiming() Timing {
	return Timing{
		TickPeriod:    time.Second,
		IdleUnit:      time.Minute,
		Grace:         3 * time.Second,
		ProgressBands: 4,
	}
}

// newWaitingMachine returns a machine that has left START and consumed the
// boot-time activity flag, so the watcher is armed and ticks are at zero.
func newWaitingMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(testTiming())
	in := Input{Time: testStart, Timeout: 300, Mode: ModePower}

	events := m.Step(in)
	if len(events) != 1 || events[0].Type != EventStartup {
		t.Fatalf("expected STARTUP event, got %+v", events)
	}
	events = m.Step(in)
	if len(events) != 1 || events[0].Type != EventActivity {
		t.Fatalf("expected boot-time ACTIVITY event, got %+v", events)
	}
	if !m.WatcherArmed() {
		t.Fatal("watcher should be armed after boot-time flag is consumed")
	}
	return m
}

// runTicks ticks the machine n times, stepping after each tick like the
// decision loop does, and returns every event produced.
func runTicks(m *Machine, n int, timeout uint32, mode Mode) []Event {
	var all []Event
	for i := 0; i < n; i++ {
		m.Tick()
		all = append(all, m.Step(Input{Time: testStart.Add(time.Duration(i) * time.Second), Timeout: timeout, Mode: mode})...)
	}
	return all
}

func countPulses(events []Event, p Pulse) int {
	n := 0
	for _, e := range events {
		if e.Pulse == p {
			n++
		}
	}
	return n
}

func TestNewMachine(t *testing.T) {
	m := NewMachine(Timing{TickPeriod: time.Second, IdleUnit: time.Minute})
	if m.State() != StateStart {
		t.Errorf("expected START, got %s", m.State())
	}
	if m.Ticks() != 0 {
		t.Errorf("expected 0 ticks, got %d", m.Ticks())
	}
	snap := m.Snapshot()
	if !snap.Activity {
		t.Error("activity flag should be set at boot")
	}
	if snap.WatcherArmed {
		t.Error("watcher should be disarmed while the boot flag is pending")
	}
	if m.Timing().ProgressBands != DefaultProgressBands {
		t.Errorf("expected default progress bands, got %d", m.Timing().ProgressBands)
	}
}

func TestStartTransitionsToWait(t *testing.T) {
	m := NewMachine(testTiming())
	events := m.Step(Input{Time: testStart, Timeout: 300})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventStartup || e.From != StateStart || e.To != StateWait {
		t.Errorf("unexpected startup event: %+v", e)
	}
	if e.Pulse != PulseNone {
		t.Errorf("startup should not pulse, got %s", e.Pulse)
	}
	if m.State() != StateWait {
		t.Errorf("expected WAIT, got %s", m.State())
	}
}

func TestShutdownPulseExactlyAfterTimeout(t *testing.T) {
	m := newWaitingMachine(t)

	events := runTicks(m, 300, 300, ModePower)
	if n := countPulses(events, PulseForceOff); n != 0 {
		t.Fatalf("expected no pulse within 300 ticks, got %d", n)
	}
	if m.State() != StateWait {
		t.Fatalf("expected WAIT at tick 300, got %s", m.State())
	}

	events = runTicks(m, 1, 300, ModePower)
	if len(events) != 1 {
		t.Fatalf("expected 1 event at tick 301, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventTimeout || e.Pulse != PulseForceOff {
		t.Errorf("expected TIMEOUT with FORCE_OFF, got %+v", e)
	}
	if e.From != StateWait || e.To != StateShutdown {
		t.Errorf("expected WAIT->SHUTDOWN, got %s->%s", e.From, e.To)
	}
	if e.Ticks != 301 {
		t.Errorf("expected trigger at tick 301, got %d", e.Ticks)
	}
	if m.Ticks() != 0 {
		t.Errorf("ticks should reset on shutdown, got %d", m.Ticks())
	}
	if m.Counts().Shutdowns != 1 {
		t.Errorf("expected 1 shutdown, got %d", m.Counts().Shutdowns)
	}
}

func TestActivityResetsTicks(t *testing.T) {
	m := newWaitingMachine(t)

	runTicks(m, 150, 300, ModePower)
	if !m.ObserveActivity(testStart) {
		t.Fatal("armed watcher should record activity")
	}
	m.Tick()
	events := m.Step(Input{Time: testStart, Timeout: 300})
	if len(events) != 1 || events[0].Type != EventActivity {
		t.Fatalf("expected ACTIVITY, got %+v", events)
	}
	if !events[0].Rearm {
		t.Error("activity event should request watcher re-arm")
	}
	if m.Ticks() != 0 {
		t.Fatalf("ticks should reset on activity, got %d", m.Ticks())
	}
	if m.State() != StateWait {
		t.Errorf("expected WAIT, got %s", m.State())
	}

	// A full timeout must elapse again before the next shutdown.
	events = runTicks(m, 300, 300, ModePower)
	if n := countPulses(events, PulseForceOff); n != 0 {
		t.Fatalf("expected no pulse within 300 ticks after reset, got %d", n)
	}
	events = runTicks(m, 1, 300, ModePower)
	if n := countPulses(events, PulseForceOff); n != 1 {
		t.Fatalf("expected 1 pulse at tick 301 after reset, got %d", n)
	}
}

func TestWatcherDisarmsAfterEdge(t *testing.T) {
	m := newWaitingMachine(t)

	if !m.ObserveActivity(testStart) {
		t.Fatal("first edge should be recorded")
	}
	if m.WatcherArmed() {
		t.Error("watcher should disarm after an edge")
	}
	if m.ObserveActivity(testStart.Add(time.Millisecond)) {
		t.Error("second edge should be dropped while the first is pending")
	}

	m.Step(Input{Time: testStart, Timeout: 300})
	if !m.WatcherArmed() {
		t.Error("watcher should be re-armed after the flag is consumed")
	}
	if m.Counts().Activity != 2 {
		t.Errorf("expected 2 activity observations (boot + edge), got %d", m.Counts().Activity)
	}
}

func TestProgressBands(t *testing.T) {
	m := newWaitingMachine(t)

	events := runTicks(m, 300, 300, ModePower)
	var bands []int
	for _, e := range events {
		if e.Type != EventProgress {
			t.Fatalf("unexpected event %s", e.Type)
		}
		bands = append(bands, e.Progress)
	}
	want := []int{1, 2, 3, 4}
	if len(bands) != len(want) {
		t.Fatalf("expected bands %v, got %v", want, bands)
	}
	for i := range want {
		if bands[i] != want[i] {
			t.Errorf("band %d: got %d, want %d", i, bands[i], want[i])
		}
	}
}

func TestShutdownRecoveryBeforeGrace(t *testing.T) {
	m := newWaitingMachine(t)
	runTicks(m, 301, 300, ModePower)
	if m.State() != StateShutdown {
		t.Fatalf("expected SHUTDOWN, got %s", m.State())
	}

	// Grace is 3 ticks; activity arrives one tick before it elapses.
	events := runTicks(m, 2, 300, ModePower)
	if len(events) != 0 {
		t.Fatalf("expected no events inside grace, got %+v", events)
	}
	m.ObserveActivity(testStart)
	events = runTicks(m, 1, 300, ModePower)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventRecovered || e.From != StateShutdown || e.To != StateWait {
		t.Errorf("expected RECOVERED SHUTDOWN->WAIT, got %+v", e)
	}
	if countPulses(events, PulsePowerOn) != 0 {
		t.Error("recovery must not issue a boot pulse")
	}
	if m.Counts().Recoveries != 1 || m.Counts().Boots != 0 {
		t.Errorf("unexpected counts: %+v", m.Counts())
	}
}

func TestShutdownActivityWinsOverGrace(t *testing.T) {
	m := newWaitingMachine(t)
	runTicks(m, 301, 300, ModePower)

	// Grace has elapsed and activity is pending in the same cycle.
	for i := 0; i < 5; i++ {
		m.Tick()
	}
	m.ObserveActivity(testStart)
	events := m.Step(Input{Time: testStart, Timeout: 300})
	if len(events) != 1 || events[0].Type != EventRecovered {
		t.Fatalf("expected RECOVERED, got %+v", events)
	}
	if countPulses(events, PulsePowerOn) != 0 {
		t.Error("activity must win over grace expiry")
	}
}

func TestShutdownGraceElapsedBoots(t *testing.T) {
	m := newWaitingMachine(t)
	runTicks(m, 301, 300, ModePower)

	events := runTicks(m, 4, 300, ModePower)
	if len(events) != 2 {
		t.Fatalf("expected GRACE_ELAPSED and BOOT, got %+v", events)
	}
	if events[0].Type != EventGrace || events[0].From != StateShutdown || events[0].To != StateBoot {
		t.Errorf("unexpected grace event: %+v", events[0])
	}
	if events[1].Type != EventBoot || events[1].From != StateBoot || events[1].To != StateWait {
		t.Errorf("unexpected boot event: %+v", events[1])
	}
	if n := countPulses(events, PulsePowerOn); n != 1 {
		t.Errorf("expected exactly 1 boot pulse, got %d", n)
	}
	if !events[1].Rearm {
		t.Error("boot should re-arm the watcher")
	}
	if m.State() != StateWait || m.Ticks() != 0 {
		t.Errorf("expected WAIT with ticks reset, got %s/%d", m.State(), m.Ticks())
	}
	if m.Counts().Boots != 1 {
		t.Errorf("expected 1 boot, got %d", m.Counts().Boots)
	}
}

func TestResetModePulses(t *testing.T) {
	m := newWaitingMachine(t)

	events := runTicks(m, 301, 300, ModeReset)
	if n := countPulses(events, PulseReset); n != 1 {
		t.Fatalf("expected 1 reset pulse, got %d", n)
	}
	if n := countPulses(events, PulseForceOff); n != 0 {
		t.Errorf("reset mode must not force off, got %d", n)
	}

	events = runTicks(m, 4, 300, ModeReset)
	if len(events) != 2 || events[1].Type != EventBoot {
		t.Fatalf("expected BOOT after grace, got %+v", events)
	}
	if events[1].Pulse != PulseNone {
		t.Errorf("reset mode boot should not pulse, got %s", events[1].Pulse)
	}
}

func TestLiveTimeoutChange(t *testing.T) {
	m := newWaitingMachine(t)

	runTicks(m, 100, 300, ModePower)
	if m.State() != StateWait {
		t.Fatal("should still be waiting")
	}
	// Switch moved to a shorter timeout; it applies on the next cycle.
	events := runTicks(m, 1, 60, ModePower)
	if len(events) != 1 || events[0].Type != EventTimeout {
		t.Fatalf("expected TIMEOUT after switch change, got %+v", events)
	}
	if events[0].Timeout != 60 {
		t.Errorf("expected timeout 60 on event, got %d", events[0].Timeout)
	}
}

func TestZeroTimeoutTreatedAsOne(t *testing.T) {
	m := newWaitingMachine(t)
	m.Tick()
	if events := m.Step(Input{Time: testStart}); len(events) != 1 || events[0].Type != EventProgress {
		t.Fatalf("expected PROGRESS at tick 1 of 1, got %+v", events)
	}
	m.Tick()
	events := m.Step(Input{Time: testStart})
	if len(events) != 1 || events[0].Type != EventTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", events)
	}
}

func TestTickSaturates(t *testing.T) {
	m := NewMachine(testTiming())
	m.ticks = ^uint32(0) - 1
	m.Tick()
	m.Tick()
	if m.Ticks() != ^uint32(0) {
		t.Errorf("expected saturated counter, got %d", m.Ticks())
	}
}
