// Package monitor runs the heartbeat state machine against the board.
//
// The tick source and the activity watcher are producer goroutines that
// mutate the machine through Tick and Activity and post a wake notification.
// The decision loop is the single consumer: it blocks on Wake, then calls
// Cycle. All access to the machine happens under one mutex, which plays the
// role of suspended interrupts; Cycle holds it for the full duration of any
// relay pulse.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/canary/internal/hal"
	"github.com/sweeney/canary/internal/logic"
)

// Config is the construction-time configuration of the controller.
type Config struct {
	Timing   logic.Timing
	Table    logic.TimeoutTable
	SelfTest bool

	// Now and Sleep default to time.Now and time.Sleep.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	logic.Snapshot
	Switches hal.Switches
	Mode     logic.Mode
	CycleID  string // power cycle in progress or last completed
}

// Controller owns the state machine and the critical section around it.
type Controller struct {
	mu        sync.Mutex
	machine   *logic.Machine
	board     hal.Board
	actuator  *Actuator
	indicator *Indicator
	table     logic.TimeoutTable
	selfTest  bool
	now       func() time.Time

	wake       chan struct{}
	switches   hal.Switches
	quietUntil time.Time
	cycleID    string
}

// New creates a controller in START. The indicator may be nil.
func New(board hal.Board, indicator *Indicator, cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	table := cfg.Table
	if len(table) == 0 {
		table = logic.DefaultTimeoutTable
	}
	return &Controller{
		machine:   logic.NewMachine(cfg.Timing),
		board:     board,
		actuator:  NewActuator(board, cfg.Timing.Pulse, cfg.Sleep),
		indicator: indicator,
		table:     table,
		selfTest:  cfg.SelfTest,
		now:       cfg.Now,
		wake:      make(chan struct{}, 1),
	}
}

// Wake delivers at most one pending notification that a decision cycle is due.
func (c *Controller) Wake() <-chan struct{} {
	return c.wake
}

// Notify requests a decision cycle.
func (c *Controller) Notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Tick is the Timebase handler.
func (c *Controller) Tick() {
	c.mu.Lock()
	c.machine.Tick()
	c.mu.Unlock()

	if c.selfTest {
		c.indicator.Flash(FlashTick)
	}
	c.Notify()
}

// Activity is the Activity Watcher handler. It reports whether the edge was
// recorded. Edges are dropped while the watcher is disarmed and when they
// happened before the end of the last relay pulse.
func (c *Controller) Activity(at time.Time) bool {
	c.mu.Lock()
	if at.Before(c.quietUntil) {
		c.mu.Unlock()
		return false
	}
	ok := c.machine.ObserveActivity(at)
	if ok {
		if err := c.board.SetActivityInterrupt(false); err != nil {
			log.Printf("monitor: disable activity interrupt: %v", err)
		}
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	if c.selfTest {
		c.indicator.Flash(FlashActivity)
	}
	c.Notify()
	return true
}

// Run performs the startup cycle, then one cycle per wake notification
// until ctx is done. handle, if not nil, receives the decisions of every
// cycle after the critical section has been left.
func (c *Controller) Run(ctx context.Context, handle func([]logic.Event)) error {
	for {
		events := c.Cycle()
		if handle != nil {
			handle(events)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-c.Wake():
		}
	}
}

// Cycle runs one decision: read the switches, recompute the timeout, step
// the machine and perform any pulses it requests. It returns the decisions made.
func (c *Controller) Cycle() []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	sw, err := c.board.ReadSwitches()
	if err != nil {
		log.Printf("monitor: read switches: %v (keeping %+v)", err, c.switches)
	} else {
		c.switches = sw
	}

	mode := modeOf(c.switches)
	timeout := c.table.Ticks(c.switches.Selection, c.machine.Timing())
	events := c.machine.Step(logic.Input{
		Time:    c.now(),
		Timeout: timeout,
		Mode:    mode,
	})

	rearm := false
	for i := range events {
		e := &events[i]
		switch e.Type {
		case logic.EventTimeout:
			c.cycleID = uuid.NewString()
			e.CycleID = c.cycleID
		case logic.EventGrace, logic.EventBoot, logic.EventRecovered:
			e.CycleID = c.cycleID
		}

		if e.Pulse != logic.PulseNone {
			log.Printf("monitor: %s pulse (%s -> %s, ticks=%d)", e.Pulse, e.From, e.To, e.Ticks)
			if err := c.actuator.Do(e.Pulse); err != nil {
				log.Printf("monitor: pulse failed: %v", err)
			}
			c.quietUntil = c.now()
		}
		if e.Rearm {
			rearm = true
		}
	}

	// The machine cleared the flag in Step; arm the hardware only now.
	if rearm {
		if err := c.board.SetActivityInterrupt(true); err != nil {
			log.Printf("monitor: enable activity interrupt: %v", err)
		}
	}

	if len(events) > 0 {
		last := events[len(events)-1]
		c.indicator.Show(Indication{
			Startup:  last.Type == logic.EventStartup,
			State:    last.To,
			Progress: last.Progress,
		})
	}
	return events
}

// Snapshot returns a point-in-time copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Snapshot: c.machine.Snapshot(),
		Switches: c.switches,
		Mode:     modeOf(c.switches),
		CycleID:  c.cycleID,
	}
}

// Timing returns the controller's timing configuration.
func (c *Controller) Timing() logic.Timing {
	return c.machine.Timing()
}

func modeOf(sw hal.Switches) logic.Mode {
	if sw.ResetMode {
		return logic.ModeReset
	}
	return logic.ModePower
}
