package logic

import "time"

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}

// HeartbeatClock decides when the daemon publishes its periodic heartbeat.
type HeartbeatClock struct {
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewHeartbeatClock creates a clock. The startTime is used for uptime.
func NewHeartbeatClock(startTime time.Time) *HeartbeatClock {
	return &HeartbeatClock{startTime: startTime, lastHeartbeat: startTime}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup). Returns nil if the interval has not elapsed, or if
// interval is <= 0 (disabled).
func (h *HeartbeatClock) Check(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(h.lastHeartbeat) < interval {
		return nil
	}
	h.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
	}
}
