// Package bump watches the collision switches and overrides the drive on
// impact.
package bump

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/robotalks/linebot/pkg/drive"
)

// NumSwitches is the number of bump switches.
const NumSwitches = 6

// Mask is the positive logic state of the switches, bit n set when switch
// n is pressed.
type Mask uint8

// All has every switch bit set.
const All Mask = 1<<NumSwitches - 1

// String implements fmt.Stringer.
func (m Mask) String() string {
	return fmt.Sprintf("%06b", uint8(m))
}

// Pressed lists the indices of the pressed switches.
func (m Mask) Pressed() []int {
	var pressed []int
	for n := 0; n < NumSwitches; n++ {
		if m&(1<<uint(n)) != 0 {
			pressed = append(pressed, n)
		}
	}
	return pressed
}

// portPins maps switch n to its pin on the bump port.
var portPins = [NumSwitches]uint{0, 2, 3, 5, 6, 7}

// DecodePort converts the negative logic bump port value, switches on pins
// 7,6,5,3,2,0, into a Mask.
func DecodePort(port uint8) Mask {
	var m Mask
	for n, pin := range portPins {
		if port&(1<<pin) == 0 {
			m |= 1 << uint(n)
		}
	}
	return m
}

// EncodePort is the inverse of DecodePort; unused pins read high.
func EncodePort(m Mask) uint8 {
	port := uint8(0xff)
	for n, pin := range portPins {
		if m&(1<<uint(n)) != 0 {
			port &^= 1 << pin
		}
	}
	return port
}

// Switches is the collision switch collaborator.
type Switches interface {
	// Read returns the current state of the switches.
	Read() (Mask, error)
	// Watch calls fn with the state seen once watching has started, then
	// with the new state on every switch change until ctx is done.
	Watch(ctx context.Context, fn func(Mask)) error
}

// Flag is the collision flag shared by the monitor and the control loop.
// It implements drive.Latch.
type Flag struct {
	set  atomic.Bool
	mask atomic.Uint32
}

// Raise implements drive.Latch.
func (f *Flag) Raise() { f.set.Store(true) }

// Lower implements drive.Latch.
func (f *Flag) Lower() {
	f.set.Store(false)
	f.mask.Store(0)
}

// IsSet implements drive.Latch.
func (f *Flag) IsSet() bool { return f.set.Load() }

// Record remembers the switches which caused the collision.
func (f *Flag) Record(m Mask) { f.mask.Store(uint32(m)) }

// Switches returns the recorded switches.
func (f *Flag) Switches() Mask { return Mask(f.mask.Load()) }

// Monitor trips the guard when a switch is newly pressed.
type Monitor struct {
	Switches Switches
	Guard    *drive.Guard
	Flag     *Flag
	// OnCollision is optionally called after the guard is tripped.
	OnCollision func(Mask)

	lock sync.Mutex
	last Mask
}

// NewMonitor creates a Monitor.
func NewMonitor(sw Switches, guard *drive.Guard, flag *Flag) *Monitor {
	return &Monitor{Switches: sw, Guard: guard, Flag: flag}
}

// Run implements framework.Runnable. Switches already pressed when
// watching starts trip the guard like a new press.
func (m *Monitor) Run(ctx context.Context) error {
	return m.Switches.Watch(ctx, m.Changed)
}

// Changed handles a change of the switches and trips on presses only.
func (m *Monitor) Changed(state Mask) {
	m.lock.Lock()
	pressed := state &^ m.last
	m.last = state
	m.lock.Unlock()
	if pressed != 0 {
		m.Handle(pressed)
	}
}

// Handle trips the guard for the pressed switches.
func (m *Monitor) Handle(pressed Mask) {
	m.Flag.Record(m.Flag.Switches() | pressed)
	if err := m.Guard.Trip(); err != nil {
		glog.Errorf("bump stop error: %v", err)
	}
	glog.Warningf("collision on switches %v", pressed.Pressed())
	if fn := m.OnCollision; fn != nil {
		fn(pressed)
	}
}

// Released tells whether all switches are released.
func (m *Monitor) Released() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.last == 0
}

// ClearMode selects how a collision is cleared.
type ClearMode int

// Clear modes
const (
	// Manual waits for an operator reset.
	Manual ClearMode = iota
	// Auto resumes after the switches stay released for ResumeTicks.
	Auto
)

// String implements fmt.Stringer.
func (m ClearMode) String() string {
	if m == Auto {
		return "auto"
	}
	return "manual"
}

// ParseClearMode parses a clear mode name.
func ParseClearMode(s string) (ClearMode, error) {
	switch strings.ToLower(s) {
	case "", "manual":
		return Manual, nil
	case "auto":
		return Auto, nil
	}
	return Manual, fmt.Errorf("unknown clear mode %q", s)
}

// Policy decides when a collision is cleared.
type Policy struct {
	Mode        ClearMode
	ResumeTicks int
}

// DefaultResumeTicks is the auto resume delay: one second at 10ms ticks.
const DefaultResumeTicks = 100

// Tracker applies a Policy tick by tick.
type Tracker struct {
	Policy Policy
	quiet  int
}

// Tick is called once per control tick while the flag is set. It returns
// true when the collision should be cleared.
func (t *Tracker) Tick(released bool) bool {
	if t.Policy.Mode != Auto {
		return false
	}
	if !released {
		t.quiet = 0
		return false
	}
	t.quiet++
	ticks := t.Policy.ResumeTicks
	if ticks <= 0 {
		ticks = DefaultResumeTicks
	}
	if t.quiet >= ticks {
		t.quiet = 0
		return true
	}
	return false
}

// Reset restarts counting.
func (t *Tracker) Reset() {
	t.quiet = 0
}
