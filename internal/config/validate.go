package config

import (
	"errors"
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	// ---- timing ----

	if cfg.TickPeriod <= 0 {
		return fmt.Errorf("tick_period must be positive, got %v", cfg.TickPeriod)
	}
	if cfg.IdleUnit < cfg.TickPeriod {
		return fmt.Errorf("idle_unit %v is shorter than tick_period %v", cfg.IdleUnit, cfg.TickPeriod)
	}
	if cfg.Grace < 0 {
		return fmt.Errorf("grace must not be negative, got %v", cfg.Grace)
	}
	if cfg.ProgressBands < 0 {
		return fmt.Errorf("progress_bands must not be negative, got %d", cfg.ProgressBands)
	}
	if len(cfg.TimeoutTable) == 0 {
		return errors.New("timeout_table must not be empty")
	}
	for i, units := range cfg.TimeoutTable {
		if units == 0 {
			return fmt.Errorf("timeout_table[%d] must be at least 1", i)
		}
	}

	// ---- relay ----

	if cfg.Pulse.Hold <= 0 || cfg.Pulse.Assert <= 0 {
		return fmt.Errorf("pulse hold and assert must be positive, got %v/%v", cfg.Pulse.Hold, cfg.Pulse.Assert)
	}
	if cfg.Pulse.Release < 0 {
		return fmt.Errorf("pulse release must not be negative, got %v", cfg.Pulse.Release)
	}

	// ---- board ----

	if cfg.GPIO.Chip == "" {
		return errors.New("gpio chip must be set")
	}
	if len(cfg.GPIO.DIP) != 3 {
		return fmt.Errorf("gpio dip must list 3 pins, got %d", len(cfg.GPIO.DIP))
	}
	if cfg.GPIO.Debounce < 0 {
		return fmt.Errorf("gpio debounce must not be negative, got %v", cfg.GPIO.Debounce)
	}
	if (cfg.GPIO.LEDGreen < 0) != (cfg.GPIO.LEDRed < 0) {
		return errors.New("gpio led_green and led_red must both be set or both be disabled")
	}

	pins := []pinUse{
		{cfg.GPIO.Activity, "activity"},
		{cfg.GPIO.Relay, "relay"},
		{cfg.GPIO.DIP[0], "dip1"},
		{cfg.GPIO.DIP[1], "dip2"},
		{cfg.GPIO.DIP[2], "dip3"},
		{cfg.GPIO.Mode, "mode"},
	}
	if cfg.GPIO.LEDGreen >= 0 {
		pins = append(pins, pinUse{cfg.GPIO.LEDGreen, "led_green"}, pinUse{cfg.GPIO.LEDRed, "led_red"})
	}
	used := make(map[int]string)
	for _, p := range pins {
		if p.pin < 0 {
			return fmt.Errorf("gpio %s pin must not be negative, got %d", p.name, p.pin)
		}
		if prev, ok := used[p.pin]; ok {
			return fmt.Errorf("gpio pin %d used by both %s and %s", p.pin, prev, p.name)
		}
		used[p.pin] = p.name
	}

	// ---- watchdog ----

	// The longest gap between re-arms is one tick period plus a force-off
	// sequence, since the critical section is held for the whole pulse.
	if cfg.Watchdog.Device != "" {
		worst := cfg.TickPeriod + cfg.Pulse.Hold + cfg.Pulse.Release
		if cfg.Watchdog.Timeout <= worst {
			return fmt.Errorf("watchdog timeout %v must exceed tick_period + pulse hold + release (%v)", cfg.Watchdog.Timeout, worst)
		}
	}

	// ---- outer surfaces ----

	if cfg.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt heartbeat must not be negative, got %v", cfg.MQTT.Heartbeat)
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.BufferSize < 1 {
		return fmt.Errorf("mqtt buffer_size must be at least 1, got %d", cfg.MQTT.BufferSize)
	}

	return nil
}

type pinUse struct {
	pin  int
	name string
}
