package logic

import (
	"testing"
	"time"
)

func TestHeartbeatDisabled(t *testing.T) {
	h := NewHeartbeatClock(testStart)
	if hb := h.Check(testStart.Add(time.Hour), 0); hb != nil {
		t.Errorf("expected nil with interval 0, got %+v", hb)
	}
	if hb := h.Check(testStart.Add(time.Hour), -time.Second); hb != nil {
		t.Errorf("expected nil with negative interval, got %+v", hb)
	}
}

func TestHeartbeatInterval(t *testing.T) {
	h := NewHeartbeatClock(testStart)
	interval := 15 * time.Minute

	if hb := h.Check(testStart.Add(14*time.Minute), interval); hb != nil {
		t.Fatalf("expected no heartbeat before interval, got %+v", hb)
	}

	hb := h.Check(testStart.Add(15*time.Minute), interval)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if !hb.Timestamp.Equal(testStart.Add(15 * time.Minute)) {
		t.Errorf("unexpected timestamp: %v", hb.Timestamp)
	}

	if hb := h.Check(testStart.Add(20*time.Minute), interval); hb != nil {
		t.Error("expected no heartbeat 5m after the last one")
	}
	hb = h.Check(testStart.Add(30*time.Minute), interval)
	if hb == nil || hb.Uptime != 30*time.Minute {
		t.Errorf("expected second heartbeat with 30m uptime, got %+v", hb)
	}
}
