package drive

import (
	"errors"
	"sync"
)

// ErrOverridden is returned by Guard.Apply while the latch is raised.
var ErrOverridden = errors.New("drive overridden")

// Latch is the shared override flag a Guard consults.
type Latch interface {
	Raise()
	Lower()
	IsSet() bool
}

// Guard wraps an Actuator so that raising the latch and stopping the
// motors happen under the same lock as Apply. Once Trip returns, no
// command reaches the wrapped actuator until Clear.
type Guard struct {
	act   Actuator
	latch Latch
	lock  sync.Mutex
}

// NewGuard creates a Guard.
func NewGuard(act Actuator, latch Latch) *Guard {
	return &Guard{act: act, latch: latch}
}

// Apply implements Actuator.
func (g *Guard) Apply(cmd Command) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.latch.IsSet() {
		return ErrOverridden
	}
	return g.act.Apply(cmd)
}

// Stop implements Actuator.
func (g *Guard) Stop() error {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.act.Stop()
}

// Indicate implements Indicator if the wrapped actuator does.
func (g *Guard) Indicate(c Color) error {
	ind, ok := g.act.(Indicator)
	if !ok {
		return nil
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	return ind.Indicate(c)
}

// Trip raises the latch and stops the motors.
func (g *Guard) Trip() error {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.latch.Raise()
	return g.act.Stop()
}

// Clear lowers the latch.
func (g *Guard) Clear() {
	g.lock.Lock()
	g.latch.Lower()
	g.lock.Unlock()
}

// Tripped tells whether the latch is raised.
func (g *Guard) Tripped() bool {
	return g.latch.IsSet()
}

// Recorder is an in-memory Actuator and Indicator which keeps every call.
type Recorder struct {
	lock       sync.Mutex
	Commands   []Command
	Stops      int
	Indicators []Color
	Err        error
}

// Apply implements Actuator.
func (r *Recorder) Apply(cmd Command) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Commands = append(r.Commands, cmd)
	return nil
}

// Stop implements Actuator.
func (r *Recorder) Stop() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Stops++
	return r.Err
}

// Indicate implements Indicator.
func (r *Recorder) Indicate(c Color) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Indicators = append(r.Indicators, c)
	return nil
}

// Last returns the last applied command.
func (r *Recorder) Last() (cmd Command, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.Commands) == 0 {
		return Halt, false
	}
	return r.Commands[len(r.Commands)-1], true
}

// Snapshot copies the applied commands.
func (r *Recorder) Snapshot() []Command {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Command(nil), r.Commands...)
}
