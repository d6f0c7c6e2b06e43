package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	SessionID     string       `json:"session_id"`
	Ready         bool         `json:"ready"`
	Watchdog      WatchdogJSON `json:"watchdog"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// WatchdogJSON is the state machine as seen by the controller.
type WatchdogJSON struct {
	State        string `json:"state"`
	Ticks        uint32 `json:"ticks"`
	Timeout      uint32 `json:"timeout_ticks"`
	Progress     int    `json:"progress"`
	Selection    int    `json:"switch_selection"`
	Mode         string `json:"mode"`
	WatcherArmed bool   `json:"watcher_armed"`
	LastActivity string `json:"last_activity,omitempty"`
	CycleID      string `json:"cycle_id,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decision counts.
type CountsJSON struct {
	Activity   int `json:"activity"`
	Shutdowns  int `json:"shutdowns"`
	Boots      int `json:"boots"`
	Recoveries int `json:"recoveries"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickPeriodMs int64    `json:"tick_period_ms"`
	IdleUnitMs   int64    `json:"idle_unit_ms"`
	GraceMs      int64    `json:"grace_ms"`
	HeartbeatMs  int64    `json:"heartbeat_ms"`
	Table        []uint32 `json:"timeout_table"`
	SelfTest     bool     `json:"self_test"`
	Watchdog     string   `json:"watchdog_device,omitempty"`
	Broker       string   `json:"broker"`
	HTTPAddr     string   `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	m := snap.Monitor
	state := string(m.State)
	if state == "" || !snap.Ready {
		state = "UNKNOWN"
	}
	mode := string(m.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		SessionID: snap.SessionID,
		Ready:     snap.Ready,
		Watchdog: WatchdogJSON{
			State:        state,
			Ticks:        m.Ticks,
			Timeout:      m.Timeout,
			Progress:     m.Progress,
			Selection:    m.Switches.Selection,
			Mode:         mode,
			WatcherArmed: m.WatcherArmed,
			CycleID:      m.CycleID,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Activity:   m.Counts.Activity,
			Shutdowns:  m.Counts.Shutdowns,
			Boots:      m.Counts.Boots,
			Recoveries: m.Counts.Recoveries,
		},
		Config: ConfigJSON{
			TickPeriodMs: snap.Config.TickPeriodMs,
			IdleUnitMs:   snap.Config.IdleUnitMs,
			GraceMs:      snap.Config.GraceMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Table:        snap.Config.Table,
			SelfTest:     snap.Config.SelfTest,
			Watchdog:     snap.Config.Watchdog,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
	if !m.LastActivity.IsZero() {
		inner.Watchdog.LastActivity = m.LastActivity.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
