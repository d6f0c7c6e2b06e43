// Package mqtt publishes watchdog decisions and daemon lifecycle events.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/canary/internal/logic"
)

// Topic is the MQTT topic for watchdog decisions.
const Topic = "canary/watchdog/events"

// TopicSystem is the MQTT topic for daemon lifecycle events.
const TopicSystem = "canary/watchdog/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a watchdog decision to the broker.
	// Errors are reported but must never stop the watchdog.
	Publish(event logic.Event) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle event (STARTUP, SHUTDOWN, HEARTBEAT,
// RECONNECTED, OFFLINE).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // SIGTERM, SIGINT (shutdown only)
	Dropped    int    // messages lost while disconnected (reconnect only)
	RawPayload []byte // pre-formatted payload, returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the MQTT message for a watchdog decision.
type Payload struct {
	Watchdog WatchdogPayload `json:"watchdog"`
}

type WatchdogPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	From      string `json:"from"`
	To        string `json:"to"`
	Pulse     string `json:"pulse,omitempty"`
	Ticks     uint32 `json:"ticks"`
	Timeout   uint32 `json:"timeout"`
	Progress  int    `json:"progress"`
	CycleID   string `json:"cycle_id,omitempty"`
}

// FormatPayload creates the JSON payload for a watchdog decision.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Watchdog: WatchdogPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			From:      string(event.From),
			To:        string(event.To),
			Pulse:     string(event.Pulse),
			Ticks:     event.Ticks,
			Timeout:   event.Timeout,
			Progress:  event.Progress,
			CycleID:   event.CycleID,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message for simple lifecycle events (LWT,
// RECONNECTED) that carry no status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Dropped   int    `json:"dropped,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Dropped:   event.Dropped,
		},
	}
	return json.Marshal(payload)
}

// Published reports whether a decision is worth a message. ACTIVITY and
// PROGRESS happen on nearly every tick of a healthy host and stay local.
func Published(t logic.EventType) bool {
	switch t {
	case logic.EventActivity, logic.EventProgress:
		return false
	}
	return true
}

// NopPublisher discards everything. It stands in when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
