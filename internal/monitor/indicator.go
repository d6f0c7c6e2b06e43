package monitor

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/canary/internal/logic"
)

// LED flash timings.
const (
	FlashLong  = 500 * time.Millisecond
	FlashShort = 200 * time.Millisecond
	FlashBlink = 100 * time.Millisecond
)

// LEDs is the status LED output of the board.
type LEDs interface {
	SetLEDs(green, red bool) error
}

// Flash is a one-off self-test indication.
type Flash int

const (
	FlashTick Flash = iota + 1
	FlashActivity
)

// Indication is what the status LEDs should currently show.
type Indication struct {
	Startup  bool
	State    logic.State
	Progress int
}

// Step is one LED output held for a duration.
type Step struct {
	Green bool
	Red   bool
	Hold  time.Duration // zero holds until the next indication
}

// Pattern returns the LED sequence for an indication.
func Pattern(ind Indication) []Step {
	if ind.Startup {
		return []Step{
			{Green: true, Hold: FlashLong},
			{Red: true, Hold: FlashLong},
			{Green: true, Red: true, Hold: FlashLong},
			{},
		}
	}
	switch ind.State {
	case logic.StateShutdown:
		return []Step{{Red: true}}
	case logic.StateBoot:
		return []Step{{Green: true, Red: true}}
	}
	// One blink for a healthy host, one more per idle progress band.
	var steps []Step
	for i := 0; i <= ind.Progress; i++ {
		steps = append(steps, Step{Green: true, Hold: FlashBlink}, Step{Hold: FlashShort})
	}
	return append(steps, Step{})
}

// FlashPattern returns the LED sequence for a self-test flash.
func FlashPattern(f Flash) []Step {
	switch f {
	case FlashTick:
		return []Step{{Red: true, Hold: FlashBlink}, {}}
	case FlashActivity:
		return []Step{{Green: true, Hold: FlashBlink}, {}}
	}
	return nil
}

// Indicator renders indications on the status LEDs from its own goroutine.
// It is purely observational: nothing it does feeds back into control.
type Indicator struct {
	leds    LEDs
	sleep   func(time.Duration)
	updates chan Indication
	flashes chan Flash
}

// NewIndicator creates an indicator. A nil leds makes every call a no-op,
// for headless boards. A nil sleep uses time.Sleep.
func NewIndicator(leds LEDs, sleep func(time.Duration)) *Indicator {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Indicator{
		leds:    leds,
		sleep:   sleep,
		updates: make(chan Indication, 1),
		flashes: make(chan Flash, 1),
	}
}

// Show replaces any pending indication. It never blocks.
func (i *Indicator) Show(ind Indication) {
	if i == nil || i.leds == nil {
		return
	}
	for {
		select {
		case i.updates <- ind:
			return
		default:
		}
		select {
		case <-i.updates:
		default:
		}
	}
}

// Flash queues a self-test flash, dropping it if one is already pending.
func (i *Indicator) Flash(f Flash) {
	if i == nil || i.leds == nil {
		return
	}
	select {
	case i.flashes <- f:
	default:
	}
}

// Run plays indications until ctx is done.
func (i *Indicator) Run(ctx context.Context) error {
	if i.leds == nil {
		<-ctx.Done()
		return nil
	}
	var current Indication
	for {
		select {
		case <-ctx.Done():
			i.leds.SetLEDs(false, false)
			return nil
		case ind := <-i.updates:
			current = ind
			i.play(Pattern(ind))
		case f := <-i.flashes:
			i.play(FlashPattern(f))
			// Restore a steady alarm after the flash.
			if current.State == logic.StateShutdown || current.State == logic.StateBoot {
				i.play(Pattern(current))
			}
		}
	}
}

func (i *Indicator) play(steps []Step) {
	for _, s := range steps {
		if err := i.leds.SetLEDs(s.Green, s.Red); err != nil {
			log.Printf("indicator: %v", err)
			return
		}
		if s.Hold > 0 {
			i.sleep(s.Hold)
		}
	}
}
