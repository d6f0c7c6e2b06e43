package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/canary/internal/hal"
	"github.com/sweeney/canary/internal/logic"
	"github.com/sweeney/canary/internal/monitor"
	"github.com/sweeney/canary/internal/mqtt"
	"github.com/sweeney/canary/internal/status"
	"github.com/sweeney/canary/internal/web"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// rig wires the controller to fakes the same way the daemon does, but drives
// ticks and decision cycles synchronously.
type rig struct {
	board   *hal.FakeBoard
	clock   *clock
	ctrl    *monitor.Controller
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
}

func newRig(t *testing.T, sw hal.Switches) *rig {
	t.Helper()
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	board := hal.NewFakeBoard(sw)
	r := &rig{
		board: board,
		clock: c,
		ctrl: monitor.New(board, nil, monitor.Config{
			Timing: logic.Timing{
				TickPeriod:    8 * time.Second,
				IdleUnit:      time.Minute,
				Grace:         30 * time.Second,
				Pulse:         logic.PulseSpec{Hold: 5 * time.Second, Release: 5 * time.Second, Assert: 500 * time.Millisecond},
				ProgressBands: logic.DefaultProgressBands,
			},
			Table: logic.DefaultTimeoutTable,
			Now:   c.Now,
			Sleep: c.Advance,
		}),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(c.Now(), status.Config{TickPeriodMs: 8000, IdleUnitMs: 60000, GraceMs: 30000}),
	}
	r.cycle()
	return r
}

// cycle runs one decision and forwards it like the daemon does.
func (r *rig) cycle() []logic.Event {
	events := r.ctrl.Cycle()
	for _, e := range events {
		if mqtt.Published(e.Type) {
			r.pub.Publish(e)
		}
	}
	r.tracker.Update(r.ctrl.Snapshot())
	return events
}

func (r *rig) tick(n int) {
	for i := 0; i < n; i++ {
		r.clock.Advance(8 * time.Second)
		r.ctrl.Tick()
		<-r.ctrl.Wake()
		r.cycle()
	}
}

func (r *rig) activity() {
	r.clock.Advance(time.Second)
	if r.ctrl.Activity(r.clock.Now()) {
		<-r.ctrl.Wake()
		r.cycle()
	}
}

func (r *rig) presses() int {
	n := 0
	for _, v := range r.board.RelayLog() {
		if v {
			n++
		}
	}
	return n
}

// TestIntegrationHungHostIsPowerCycled walks a host through hang, power
// cycle and recovery with the default 8s tick and selection 1 (2 minutes).
func TestIntegrationHungHostIsPowerCycled(t *testing.T) {
	r := newRig(t, hal.Switches{Selection: 1})

	// 2 minutes at 8s ticks is 15 ticks.
	r.tick(1) // boot-time activity
	r.tick(15)
	if r.presses() != 0 {
		t.Fatal("no press expected before the timeout")
	}

	r.tick(1)
	if r.presses() != 1 {
		t.Fatalf("expected force-off press, got %d", r.presses())
	}
	if s := r.ctrl.Snapshot(); s.State != logic.StateShutdown {
		t.Fatalf("expected SHUTDOWN, got %s", s.State)
	}

	// 30s grace at 8s ticks is 4 ticks; BOOT on the 5th.
	r.tick(4)
	if r.presses() != 1 {
		t.Fatal("no power-on before grace elapsed")
	}
	r.tick(1)
	if r.presses() != 2 {
		t.Fatalf("expected power-on press, got %d", r.presses())
	}

	// Host comes back and shows activity.
	r.activity()
	r.tick(10)
	if r.presses() != 2 {
		t.Error("active host must not be cycled again")
	}

	want := []logic.EventType{logic.EventStartup, logic.EventTimeout, logic.EventGrace, logic.EventBoot}
	got := r.pub.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}

	snap := r.tracker.Snapshot()
	if snap.Monitor.Counts.Shutdowns != 1 || snap.Monitor.Counts.Boots != 1 {
		t.Errorf("unexpected counts: %+v", snap.Monitor.Counts)
	}
}

func TestIntegrationRecoveryDuringGrace(t *testing.T) {
	r := newRig(t, hal.Switches{Selection: 0}) // 7 ticks
	r.tick(1)
	r.tick(8)
	if r.presses() != 1 {
		t.Fatalf("expected force-off, got %d presses", r.presses())
	}

	// The host was already going down on its own and comes back.
	r.tick(2)
	r.activity()

	got := r.pub.EventTypes()
	if got[len(got)-1] != logic.EventRecovered {
		t.Errorf("expected RECOVERED last, got %v", got)
	}
	r.tick(3)
	if r.presses() != 1 {
		t.Error("recovery must cancel the boot press")
	}
}

func TestIntegrationResetWiring(t *testing.T) {
	r := newRig(t, hal.Switches{Selection: 0, ResetMode: true})
	r.tick(1)
	r.tick(8)
	r.tick(5)

	if r.presses() != 1 {
		t.Errorf("reset wiring uses a single reset press per cycle, got %d", r.presses())
	}
	var p mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[1], &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Watchdog.Event != "TIMEOUT" || p.Watchdog.Pulse != "RESET" {
		t.Errorf("unexpected timeout payload: %+v", p.Watchdog)
	}
	if s := r.ctrl.Snapshot(); s.State != logic.StateWait {
		t.Errorf("expected WAIT after boot, got %s", s.State)
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	r := newRig(t, hal.Switches{})
	r.pub.PublishError = errors.New("broker down")

	r.tick(1)
	r.tick(8)
	if r.presses() != 1 {
		t.Error("watchdog must act regardless of publish failures")
	}
}

func TestIntegrationStatusPage(t *testing.T) {
	r := newRig(t, hal.Switches{Selection: 2})
	r.tick(1)
	r.tick(6)

	srv := web.New(":0", r.tracker)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	w := sj.Status.Watchdog
	if w.State != "WAIT" || w.Ticks != 6 || w.Timeout != 22 {
		t.Errorf("unexpected watchdog status: %+v", w)
	}
	if w.Selection != 2 || w.Mode != "POWER" {
		t.Errorf("unexpected switches: %+v", w)
	}
	if w.Progress != 1 {
		t.Errorf("6 of 22 ticks is band 1, got %d", w.Progress)
	}
}

func TestIntegrationStartupAndShutdownPayloads(t *testing.T) {
	r := newRig(t, hal.Switches{})

	startup := status.FormatStatusEvent(r.tracker.Snapshot(), "STARTUP", "")
	r.pub.PublishSystem(mqtt.SystemEvent{Event: "STARTUP", Retained: true, RawPayload: startup})
	r.tick(3)
	shutdown := status.FormatStatusEvent(r.tracker.Snapshot(), "SHUTDOWN", "SIGTERM")
	r.pub.PublishSystem(mqtt.SystemEvent{Event: "SHUTDOWN", Reason: "SIGTERM", Retained: true, RawPayload: shutdown})

	if names := r.pub.SystemEventNames(); len(names) != 2 || names[0] != "STARTUP" || names[1] != "SHUTDOWN" {
		t.Fatalf("unexpected system events: %v", names)
	}

	var first, last status.StatusJSON
	if err := json.Unmarshal(r.pub.SystemPayloads[0], &first); err != nil {
		t.Fatalf("invalid startup JSON: %v", err)
	}
	if err := json.Unmarshal(r.pub.SystemPayloads[1], &last); err != nil {
		t.Fatalf("invalid shutdown JSON: %v", err)
	}
	if first.Status.SessionID != last.Status.SessionID {
		t.Error("startup and shutdown should share the session id")
	}
	if last.Status.Reason != "SIGTERM" || last.Status.Watchdog.Ticks != 2 {
		t.Errorf("unexpected shutdown status: %+v", last.Status)
	}
}
