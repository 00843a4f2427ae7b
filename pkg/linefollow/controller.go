// Package linefollow runs the steering state machine on a framework.Loop.
//
// Every tick the loop senses the reflectance array, steps the state
// machine and actuates the command of the new state. The tick interval is
// the settling delay between a command and the next sample, so a command
// is always applied one tick before the reading it causes is taken. The
// very first tick only actuates the initial state.
package linefollow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
	"github.com/robotalks/linebot/pkg/recovery"
	"github.com/robotalks/linebot/pkg/sensor"
	"github.com/robotalks/linebot/pkg/steering"
)

// Options wires a Controller.
type Options struct {
	Table     *steering.Table
	Quantizer sensor.Quantizer
	Source    sensor.Source
	Actuator  drive.Actuator
	// Switches are optional; without them only Halt overrides the drive.
	Switches bump.Switches
	// Recovery is optional.
	Recovery *recovery.Policy
	Clear    bump.Policy
	// Events optionally receives state change and collision events.
	Events l1.Registrar
}

// Controller is the line following control loop.
type Controller struct {
	table     *steering.Table
	quantizer sensor.Quantizer
	source    sensor.Source
	recovery  *recovery.Policy
	events    l1.Registrar

	flag    bump.Flag
	guard   *drive.Guard
	monitor *bump.Monitor
	tracker bump.Tracker

	// owned by the loop goroutine.
	cur        steering.StateID
	history    recovery.History
	pulser     recovery.Pulser
	pulseStart bool
	primed     bool
	overridden bool
	sampled    bool
	reading    sensor.Reading
	symbol     steering.Symbol
	applied    drive.Command
	indicator  int
	pending    []fx.Message

	statusLock sync.RWMutex
	status     Status
}

// Status is a snapshot of the controller.
type Status struct {
	Table         string
	State         string
	StateID       steering.StateID
	Symbol        steering.Symbol
	Raw           sensor.Reading
	Position      int32
	PositionValid bool
	Command       drive.Command
	Collision     bool
	Switches      bump.Mask
	Ticks         uint64
	Recoveries    int
	Recovering    bool
}

// New validates the options and creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Table == nil {
		return nil, errors.New("missing steering table")
	}
	if err := opts.Quantizer.Validate(); err != nil {
		return nil, err
	}
	if opts.Quantizer.Width() != opts.Table.Width() {
		return nil, fmt.Errorf("quantizer width %d mismatches table %s width %d",
			opts.Quantizer.Width(), opts.Table.Name(), opts.Table.Width())
	}
	if opts.Source == nil {
		return nil, errors.New("missing sensor source")
	}
	if opts.Actuator == nil {
		return nil, errors.New("missing actuator")
	}
	if p := opts.Recovery; p != nil {
		if p.Threshold < 1 || p.Threshold > recovery.HistorySize {
			return nil, fmt.Errorf("recovery threshold %d out of range [1, %d]", p.Threshold, recovery.HistorySize)
		}
		if err := p.Pulse.Validate(); err != nil {
			return nil, fmt.Errorf("recovery pulse: %v", err)
		}
	}
	c := &Controller{
		table:     opts.Table,
		quantizer: opts.Quantizer,
		source:    opts.Source,
		recovery:  opts.Recovery,
		events:    opts.Events,
		tracker:   bump.Tracker{Policy: opts.Clear},
		cur:       opts.Table.Initial(),
		indicator: -1,
	}
	c.guard = drive.NewGuard(opts.Actuator, &c.flag)
	if opts.Switches != nil {
		c.monitor = bump.NewMonitor(opts.Switches, c.guard, &c.flag)
	}
	c.status = Status{Table: c.table.Name(), StateID: c.cur, State: c.table.State(c.cur).Name}
	return c, nil
}

// Table returns the steering table.
func (c *Controller) Table() *steering.Table {
	return c.table
}

// Guard returns the guarded actuator.
func (c *Controller) Guard() *drive.Guard {
	return c.guard
}

// Monitor returns the bump monitor, nil without switches.
func (c *Controller) Monitor() *bump.Monitor {
	return c.monitor
}

// Status returns the snapshot taken at the end of the last tick.
func (c *Controller) Status() Status {
	c.statusLock.RLock()
	defer c.statusLock.RUnlock()
	return c.status
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvTop, fx.ControlFunc(c.Override))
	l.AddController(fx.PrLvSense, fx.ControlFunc(c.Sense))
	l.AddController(fx.PrLvControl, fx.ControlFunc(c.Control))
	l.AddController(fx.PrLvActuate, fx.ControlFunc(c.Actuate))
	l.AddController(fx.PrLvPostProc, fx.ControlFunc(c.Publish))
	if c.monitor != nil {
		l.AddRunnable(fx.NamedRun("bump", c.monitor))
	}
	l.AddFinalizer(c.shutdown)
}

func (c *Controller) shutdown() error {
	glog.Info("stopping motors")
	return c.guard.Stop()
}

// Trip overrides the drive as if a switch was pressed.
func (c *Controller) Trip() error {
	return c.guard.Trip()
}

func (c *Controller) released() bool {
	return c.monitor == nil || c.monitor.Released()
}

// Override checks the collision flag. While it is set the rest of the
// cycle is suppressed.
func (c *Controller) Override(cc fx.ControlContext) error {
	if !c.flag.IsSet() {
		if c.overridden {
			c.resume()
		}
		return nil
	}
	if !c.overridden {
		c.overridden = true
		c.cur = c.table.Stop()
		c.pulser.Cancel()
		c.pulseStart = false
		c.history.Clear()
		c.tracker.Reset()
		c.indicate(c.table.State(c.cur).Command.Indicator)
		c.sendEvent(&lfmsgs.Collision{Switches: uint32(c.flag.Switches()), Tick: cc.Seq()})
	}
	if c.tracker.Tick(c.released()) {
		glog.Info("collision cleared automatically")
		c.guard.Clear()
		c.resume()
	}
	return nil
}

func (c *Controller) resume() {
	c.overridden = false
	c.cur = c.table.Initial()
	c.history.Clear()
	c.primed = false
	c.applied = drive.Halt
	glog.Infof("resuming at %s", c.table.State(c.cur).Name)
}

// Sense samples the reflectance array.
func (c *Controller) Sense(cc fx.ControlContext) error {
	c.sampled = false
	if c.overridden || !c.primed || c.pulser.Active() {
		return nil
	}
	r, err := c.source.Sample()
	if err != nil {
		return fmt.Errorf("sample error: %v", err)
	}
	c.reading, c.sampled = r, true
	return nil
}

// Control handles commands and steps the state machine.
func (c *Controller) Control(cc fx.ControlContext) error {
	c.HandleCommands(cc)
	if c.overridden || !c.sampled {
		return nil
	}
	c.symbol = c.quantizer.Quantize(c.reading)
	next := c.table.Step(c.cur, c.symbol)
	if glog.V(4) {
		glog.Infof("tick %d: %v -> %d: %s -> %s", cc.Seq(), c.reading, c.symbol,
			c.table.State(c.cur).Name, c.table.State(next).Name)
	}
	if next != c.cur {
		c.sendEvent(&lfmsgs.StateChanged{
			From:   c.table.State(c.cur).Name,
			To:     c.table.State(next).Name,
			Symbol: uint32(c.symbol),
			Tick:   cc.Seq(),
		})
	}
	c.cur = next
	c.history.Push(next)
	if c.recovery.Check(&c.history, c.table.Error()) {
		glog.Warningf("stuck in %s, recovery pulse %v for %d ticks",
			c.table.State(c.table.Error()).Name, c.recovery.Pulse, c.recovery.PulseTicks)
		c.pulser.Start(c.recovery.PulseTicks)
		c.pulseStart = true
		c.statusLock.Lock()
		c.status.Recoveries++
		c.statusLock.Unlock()
	}
	return nil
}

// Actuate applies the command of the current state.
func (c *Controller) Actuate(cc fx.ControlContext) error {
	if c.overridden {
		return nil
	}
	if c.pulser.Active() {
		if c.pulseStart {
			c.pulseStart = false
			if err := c.apply(c.recovery.Pulse); err != nil {
				return err
			}
		}
		if c.pulser.Tick() {
			// the next tick re-applies the current state before sensing.
			c.history.Clear()
			c.primed = false
		}
		return nil
	}
	if err := c.apply(c.table.State(c.cur).Command); err != nil {
		return err
	}
	c.primed = true
	return nil
}

func (c *Controller) apply(cmd drive.Command) error {
	err := c.guard.Apply(cmd)
	if err == drive.ErrOverridden {
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %v error: %v", cmd, err)
	}
	c.indicate(cmd.Indicator)
	c.applied = cmd
	return nil
}

func (c *Controller) indicate(color drive.Color) {
	if int(color) == c.indicator {
		return
	}
	if err := c.guard.Indicate(color); err != nil {
		glog.Warningf("indicate error: %v", err)
		return
	}
	c.indicator = int(color)
}

// Publish refreshes the status snapshot and flushes events.
func (c *Controller) Publish(cc fx.ControlContext) error {
	state := c.table.State(c.cur)
	pos, valid := sensor.Position(c.reading)
	c.statusLock.Lock()
	c.status.StateID = c.cur
	c.status.State = state.Name
	c.status.Symbol = c.symbol
	c.status.Raw = c.reading
	c.status.Position, c.status.PositionValid = pos, valid
	c.status.Command = c.applied
	c.status.Collision = c.flag.IsSet()
	c.status.Switches = c.flag.Switches()
	c.status.Ticks = cc.Seq()
	c.status.Recovering = c.pulser.Active()
	c.statusLock.Unlock()
	return c.flushEvents(cc.Context())
}
