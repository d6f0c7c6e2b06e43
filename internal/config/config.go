// Package config loads the daemon configuration from YAML or TOML.
package config

import (
	"time"

	"github.com/sweeney/canary/internal/hal"
	"github.com/sweeney/canary/internal/logic"
)

// Config is the complete daemon configuration. Durations are written as
// Go duration strings ("2s", "1m").
type Config struct {
	TickPeriod    time.Duration `yaml:"tick_period" toml:"tick_period"`
	IdleUnit      time.Duration `yaml:"idle_unit" toml:"idle_unit"`
	Grace         time.Duration `yaml:"grace" toml:"grace"`
	TimeoutTable  []uint32      `yaml:"timeout_table" toml:"timeout_table"`
	ProgressBands int           `yaml:"progress_bands" toml:"progress_bands"`
	SelfTest      bool          `yaml:"self_test" toml:"self_test"`

	Pulse    PulseConfig    `yaml:"pulse" toml:"pulse"`
	GPIO     GPIOConfig     `yaml:"gpio" toml:"gpio"`
	Watchdog WatchdogConfig `yaml:"watchdog" toml:"watchdog"`
	MQTT     MQTTConfig     `yaml:"mqtt" toml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http" toml:"http"`
}

// ---- relay ----

// PulseConfig holds the relay press durations.
type PulseConfig struct {
	Hold    time.Duration `yaml:"hold" toml:"hold"`
	Release time.Duration `yaml:"release" toml:"release"`
	Assert  time.Duration `yaml:"assert" toml:"assert"`
}

// ---- board ----

// GPIOConfig selects the GPIO chip and the BCM line of every board signal.
type GPIOConfig struct {
	Chip     string        `yaml:"chip" toml:"chip"`
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
	Activity int           `yaml:"activity" toml:"activity"`
	Relay    int           `yaml:"relay" toml:"relay"`
	LEDGreen int           `yaml:"led_green" toml:"led_green"` // -1 when not fitted
	LEDRed   int           `yaml:"led_red" toml:"led_red"`
	DIP      []int         `yaml:"dip" toml:"dip"` // switches #1..#3, #1 is the MSB
	Mode     int           `yaml:"mode" toml:"mode"`
}

// WatchdogConfig is the hardware watchdog re-armed on every tick.
type WatchdogConfig struct {
	Device  string        `yaml:"device" toml:"device"` // empty disables the hardware watchdog
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// ---- outer surfaces ----

// MQTTConfig configures event publishing.
type MQTTConfig struct {
	Broker     string        `yaml:"broker" toml:"broker"` // empty disables publishing
	ClientID   string        `yaml:"client_id" toml:"client_id"`
	Heartbeat  time.Duration `yaml:"heartbeat" toml:"heartbeat"`
	BufferSize int           `yaml:"buffer_size" toml:"buffer_size"`
}

// HTTPConfig configures the status page.
type HTTPConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // empty disables the status page
}

// Default returns the configuration used when no file is given.
func Default() Config {
	pins := hal.DefaultPins()
	return Config{
		TickPeriod:    2 * time.Second,
		IdleUnit:      time.Minute,
		Grace:         30 * time.Second,
		TimeoutTable:  append([]uint32(nil), logic.DefaultTimeoutTable...),
		ProgressBands: logic.DefaultProgressBands,
		Pulse: PulseConfig{
			Hold:    5 * time.Second,
			Release: 5 * time.Second,
			Assert:  500 * time.Millisecond,
		},
		GPIO: GPIOConfig{
			Chip:     "gpiochip0",
			Debounce: 5 * time.Millisecond,
			Activity: pins.Activity,
			Relay:    pins.Relay,
			LEDGreen: pins.LEDGreen,
			LEDRed:   pins.LEDRed,
			DIP:      []int{pins.DIP[0], pins.DIP[1], pins.DIP[2]},
			Mode:     pins.Mode,
		},
		Watchdog: WatchdogConfig{
			Device:  "/dev/watchdog",
			Timeout: 15 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://192.168.1.200:1883",
			ClientID:   "canary",
			Heartbeat:  15 * time.Minute,
			BufferSize: 64,
		},
		HTTP: HTTPConfig{Addr: ":80"},
	}
}

// Timing converts the timing fields for the state machine.
func (c Config) Timing() logic.Timing {
	return logic.Timing{
		TickPeriod: c.TickPeriod,
		IdleUnit:   c.IdleUnit,
		Grace:      c.Grace,
		Pulse: logic.PulseSpec{
			Hold:    c.Pulse.Hold,
			Release: c.Pulse.Release,
			Assert:  c.Pulse.Assert,
		},
		ProgressBands: c.ProgressBands,
	}
}

// Table returns the switch-selected timeout table.
func (c Config) Table() logic.TimeoutTable {
	return logic.TimeoutTable(c.TimeoutTable)
}

// BoardOptions converts the board fields for hal.NewRealBoard.
// It assumes a validated config.
func (c Config) BoardOptions() hal.Options {
	return hal.Options{
		Chip: c.GPIO.Chip,
		Pins: hal.Pins{
			Activity: c.GPIO.Activity,
			Relay:    c.GPIO.Relay,
			LEDGreen: c.GPIO.LEDGreen,
			LEDRed:   c.GPIO.LEDRed,
			DIP:      [3]int{c.GPIO.DIP[0], c.GPIO.DIP[1], c.GPIO.DIP[2]},
			Mode:     c.GPIO.Mode,
		},
		Debounce:        c.GPIO.Debounce,
		WatchdogDevice:  c.Watchdog.Device,
		WatchdogTimeout: c.Watchdog.Timeout,
	}
}
