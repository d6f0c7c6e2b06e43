package main

import (
	"log"
	"time"

	"github.com/sweeney/canary/internal/logic"
	"github.com/sweeney/canary/internal/monitor"
	"github.com/sweeney/canary/internal/mqtt"
	"github.com/sweeney/canary/internal/status"
)

// daemon connects the controller's decisions to the outer surfaces.
// handle runs on the decision loop goroutine, outside the critical section.
type daemon struct {
	ctrl       *monitor.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	interval   time.Duration
	heartbeat  *logic.HeartbeatClock
	now        func() time.Time
}

func newDaemon(ctrl *monitor.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time) *daemon {
	return &daemon{
		ctrl:       ctrl,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		interval:   heartbeat,
		heartbeat:  logic.NewHeartbeatClock(now()),
		now:        now,
	}
}

func (d *daemon) handle(events []logic.Event) {
	for _, event := range events {
		if !mqtt.Published(event.Type) {
			continue
		}
		log.Printf("event: %s %s -> %s (ticks=%d timeout=%d pulse=%q cycle=%s)",
			event.Type, event.From, event.To, event.Ticks, event.Timeout, event.Pulse, event.CycleID)
		if err := d.publisher.Publish(event); err != nil {
			// Publishing never stops the watchdog.
			log.Printf("publish error: %v", err)
		}
	}

	d.refresh()

	if hb := d.heartbeat.Check(d.now(), d.interval); hb != nil {
		snap := d.ctrl.Snapshot()
		log.Printf("heartbeat: uptime=%v state=%s ticks=%d/%d activity=%d shutdowns=%d boots=%d recoveries=%d",
			hb.Uptime, snap.State, snap.Ticks, snap.Timeout,
			snap.Counts.Activity, snap.Counts.Shutdowns, snap.Counts.Boots, snap.Counts.Recoveries)

		hbEvent := mqtt.SystemEvent{
			Timestamp: hb.Timestamp,
			Event:     "HEARTBEAT",
		}
		if d.tracker != nil {
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
		}
		if err := d.publisher.PublishSystem(hbEvent); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}
}

// refresh copies the controller state into the tracker for HTTP consumers.
func (d *daemon) refresh() {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(d.ctrl.Snapshot())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) shutdown(reason string) {
	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if d.tracker != nil {
		d.refresh()
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}
