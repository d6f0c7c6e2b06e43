//go:build linux

package hal

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard drives actual hardware using the Linux GPIO character device.
type RealBoard struct {
	chip     *gpiocdev.Chip
	activity *gpiocdev.Line
	relay    *gpiocdev.Line
	switches *gpiocdev.Lines
	leds     *gpiocdev.Lines
	wdt      *watchdogDevice
	edges    chan Edge
}

// NewRealBoard requests all lines of the board. The relay is requested
// released before anything else so the host never sees a spurious press.
func NewRealBoard(opts Options) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(opts.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	b := &RealBoard{
		chip:  chip,
		edges: make(chan Edge, 1),
	}

	// Active-low: logical 1 drives the line low and closes the relay.
	b.relay, err = chip.RequestLine(opts.Pins.Relay, gpiocdev.AsOutput(0), gpiocdev.AsActiveLow)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", opts.Pins.Relay, err)
	}

	actOpts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.handleEdge),
	}
	if opts.Debounce > 0 {
		actOpts = append(actOpts, gpiocdev.WithDebounce(opts.Debounce))
	}
	b.activity, err = chip.RequestLine(opts.Pins.Activity, actOpts...)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request activity pin %d: %w", opts.Pins.Activity, err)
	}

	// Switches close to ground against the pull-ups, so on reads as 1.
	dip := []int{opts.Pins.DIP[0], opts.Pins.DIP[1], opts.Pins.DIP[2], opts.Pins.Mode}
	b.switches, err = chip.RequestLines(dip, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request switch pins %v: %w", dip, err)
	}

	if opts.Pins.HasLEDs() {
		b.leds, err = chip.RequestLines([]int{opts.Pins.LEDGreen, opts.Pins.LEDRed}, gpiocdev.AsOutput(0, 0), gpiocdev.AsActiveLow)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request led pins: %w", err)
		}
	}

	if opts.WatchdogDevice != "" {
		b.wdt, err = openWatchdog(opts.WatchdogDevice, opts.WatchdogTimeout)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open watchdog: %w", err)
		}
	}

	return b, nil
}

// handleEdge runs on the gpiocdev watcher goroutine and must not block.
func (b *RealBoard) handleEdge(evt gpiocdev.LineEvent) {
	offerEdge(b.edges, Edge{Time: time.Now(), Rising: evt.Type == gpiocdev.LineEventRisingEdge})
}

// SetRelay asserts or releases the relay.
func (b *RealBoard) SetRelay(asserted bool) error {
	v := 0
	if asserted {
		v = 1
	}
	if err := b.relay.SetValue(v); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// SetActivityInterrupt switches edge detection on the activity line.
func (b *RealBoard) SetActivityInterrupt(enabled bool) error {
	edge := gpiocdev.WithoutEdges
	if enabled {
		edge = gpiocdev.WithBothEdges
	}
	if err := b.activity.Reconfigure(edge); err != nil {
		return fmt.Errorf("reconfigure activity edges: %w", err)
	}
	return nil
}

// Edges delivers activity edges.
func (b *RealBoard) Edges() <-chan Edge {
	return b.edges
}

// ReadActivity returns the raw level of the activity line.
func (b *RealBoard) ReadActivity() (bool, error) {
	v, err := b.activity.Value()
	if err != nil {
		return false, fmt.Errorf("read activity pin: %w", err)
	}
	return v != 0, nil
}

// ReadSwitches reads the DIP switches.
func (b *RealBoard) ReadSwitches() (Switches, error) {
	vals := make([]int, 4)
	if err := b.switches.Values(vals); err != nil {
		return Switches{}, fmt.Errorf("read switches: %w", err)
	}
	return DecodeSwitches([3]int{vals[0], vals[1], vals[2]}, vals[3]), nil
}

// SetLEDs drives the status LEDs. Without LEDs wired it does nothing.
func (b *RealBoard) SetLEDs(green, red bool) error {
	if b.leds == nil {
		return nil
	}
	if err := b.leds.SetValues([]int{boolToInt(green), boolToInt(red)}); err != nil {
		return fmt.Errorf("set leds: %w", err)
	}
	return nil
}

// ArmTimer pings the hardware watchdog.
func (b *RealBoard) ArmTimer() error {
	if b.wdt == nil {
		return nil
	}
	return b.wdt.keepalive()
}

// Close releases the relay and all lines.
// The relay is driven to released before its line is freed; it is not
// reconfigured as an input because a floating active-low line may close it.
func (b *RealBoard) Close() error {
	var errs []error

	if b.relay != nil {
		if err := b.relay.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release relay: %w", err))
		}
		if err := b.relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if b.activity != nil {
		if err := b.activity.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close activity pin: %w", err))
		}
	}
	if b.switches != nil {
		if err := b.switches.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close switch pins: %w", err))
		}
	}
	if b.leds != nil {
		if err := b.leds.SetValues([]int{0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("clear leds: %w", err))
		}
		if err := b.leds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close led pins: %w", err))
		}
	}
	if b.wdt != nil {
		if err := b.wdt.close(); err != nil {
			errs = append(errs, fmt.Errorf("close watchdog: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		log.Printf("hal: %d errors while closing board", len(errs))
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
