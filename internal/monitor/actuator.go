package monitor

import (
	"fmt"
	"time"

	"github.com/sweeney/canary/internal/logic"
)

// Relay is the relay output of the board.
type Relay interface {
	SetRelay(asserted bool) error
}

// Actuator emulates presses of the host's power or reset button.
// Callers must hold the controller's critical section for the whole call.
type Actuator struct {
	relay Relay
	spec  logic.PulseSpec
	sleep func(time.Duration)
}

// NewActuator creates an actuator. A nil sleep uses time.Sleep.
func NewActuator(relay Relay, spec logic.PulseSpec, sleep func(time.Duration)) *Actuator {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Actuator{relay: relay, spec: spec, sleep: sleep}
}

// Do performs the requested pulse. PulseNone does nothing.
func (a *Actuator) Do(p logic.Pulse) error {
	switch p {
	case logic.PulseNone:
		return nil
	case logic.PulseForceOff:
		return a.ForceOff()
	case logic.PulsePowerOn:
		return a.PowerOn()
	case logic.PulseReset:
		return a.Reset()
	}
	return fmt.Errorf("unknown pulse %q", p)
}

// ForceOff holds the power button past the host's long-press threshold,
// releases it and waits for the host to settle.
func (a *Actuator) ForceOff() error {
	if err := a.press(a.spec.Hold); err != nil {
		return fmt.Errorf("force off: %w", err)
	}
	a.sleep(a.spec.Release)
	return nil
}

// PowerOn gives the power button a short press.
func (a *Actuator) PowerOn() error {
	if err := a.press(a.spec.Assert); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	return nil
}

// Reset gives the reset button a short press.
func (a *Actuator) Reset() error {
	if err := a.press(a.spec.Assert); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// press asserts the relay for d. The relay is always released on return.
func (a *Actuator) press(d time.Duration) error {
	if err := a.relay.SetRelay(true); err != nil {
		a.relay.SetRelay(false)
		return err
	}
	a.sleep(d)
	return a.relay.SetRelay(false)
}
