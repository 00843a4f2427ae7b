// Package linebot simulates the line following robot on a track. A Bot is
// the sensor source, the actuator and the bump switches of a
// linefollow.Controller.
package linebot

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/sensor"
	"github.com/robotalks/linebot/pkg/sim"
	"github.com/robotalks/linebot/pkg/sim/physics"
	"github.com/robotalks/linebot/pkg/sim/physics/diffdrive"
	"github.com/robotalks/linebot/pkg/sim/track"
)

// BumpAngles are the directions (degrees, positive to the left) of the
// bump switches from the center of the robot, switch 0 first.
var BumpAngles = [bump.NumSwitches]float64{-75, -45, -15, 15, 45, 75}

const watchBacklog = 8

// Bot is the simulated robot.
type Bot struct {
	Track *track.Track
	// Outline is the square footprint centered on the pose.
	Outline sim.Rect
	// ArrayOffset is the distance (mm) of the sensor array ahead of the
	// wheel axis.
	ArrayOffset float64
	// Clock provides the time for commands applied outside the loop.
	Clock func() time.Time

	sim.ObjectsChangeCaster

	name    string
	lock    sync.Mutex
	body    body
	engine  *diffdrive.Engine
	cmd     drive.Command
	color   drive.Color
	reading sensor.Reading
	bumps   bump.Mask
	changes int

	watchers map[int]chan bump.Mask
	watchID  int
}

type body struct {
	pose sim.Pose2D
}

func (b *body) Position2D() sim.Pose2D { return b.pose }

func (b *body) SetPose2D(pose sim.Pose2D) sim.Pose2D {
	b.pose = pose
	return pose
}

// New creates a Bot at the start of the track.
func New(name string, t *track.Track) *Bot {
	b := &Bot{
		Track:       t,
		ArrayOffset: DefaultArrayOffset,
		Clock:       time.Now,
		name:        name,
		changes:     1, // send initial object change.
		watchers:    make(map[int]chan bump.Mask),
	}
	b.SetSize(DefaultSize)
	b.engine = diffdrive.New(&b.body)
	b.body.pose = t.Start.Pose()
	return b
}

// Engine returns the drivetrain simulation.
func (b *Bot) Engine() *diffdrive.Engine {
	return b.engine
}

// SetSize sets the outline to a square of size.
func (b *Bot) SetSize(size float64) {
	b.Outline.CX, b.Outline.CY = size, size
	b.Outline.X, b.Outline.Y = -size/2, -size/2
}

// Name implements Named.
func (b *Bot) Name() string {
	return b.name
}

// OutlineRect implements Rectangular.
func (b *Bot) OutlineRect() sim.Rect {
	return b.Outline
}

// Position2D implements Positionable2D.
func (b *Bot) Position2D() sim.Pose2D {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.body.pose
}

// SetPose2D implements Placeable2D. The wheels keep turning from the new
// pose.
func (b *Bot) SetPose2D(pose sim.Pose2D) sim.Pose2D {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.engine.Block(b.now(), pose)
	b.changes++
	return b.body.pose
}

// Command returns the command being executed.
func (b *Bot) Command() drive.Command {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.cmd
}

// Color returns the indicator color.
func (b *Bot) Color() drive.Color {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.color
}

// Reading returns the last sample.
func (b *Bot) Reading() sensor.Reading {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.reading
}

// SensorPos locates sensor n of the array.
func (b *Bot) SensorPos(pose sim.Pose2D, n int) sim.Pos2D {
	return pose.Offset(b.ArrayOffset, float64(sensor.Weights[n])/1000)
}

// BumpPos locates bump switch n on the outline.
func (b *Bot) BumpPos(pose sim.Pose2D, n int) sim.Pos2D {
	radius := b.Outline.CX / 2
	a := sim.AngleFromDegrees(BumpAngles[n])
	return pose.Offset(radius*a.Cos(), radius*a.Sin())
}

// Sample implements sensor.Source.
func (b *Bot) Sample() (sensor.Reading, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	var r sensor.Reading
	for n := range sensor.Weights {
		if b.Track.OnLine(b.SensorPos(b.body.pose, n)) {
			r |= 1 << uint(n)
		}
	}
	b.reading = r
	return r, nil
}

// Apply implements drive.Actuator.
func (b *Bot) Apply(cmd drive.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if cmd != b.cmd {
		b.engine.Apply(b.now(), cmd)
		b.cmd = cmd
		b.changes++
	}
	return nil
}

// Stop implements drive.Actuator.
func (b *Bot) Stop() error {
	return b.Apply(drive.Command{})
}

// Indicate implements drive.Indicator.
func (b *Bot) Indicate(c drive.Color) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.color != c {
		b.color = c
		b.changes++
	}
	return nil
}

// Read implements bump.Switches.
func (b *Bot) Read() (bump.Mask, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.bumps, nil
}

// Watch implements bump.Switches.
func (b *Bot) Watch(ctx context.Context, fn func(bump.Mask)) error {
	ch := make(chan bump.Mask, watchBacklog)
	b.lock.Lock()
	id := b.watchID
	b.watchID++
	b.watchers[id] = ch
	initial := b.bumps
	b.lock.Unlock()

	defer func() {
		b.lock.Lock()
		delete(b.watchers, id)
		b.lock.Unlock()
	}()

	fn(initial)
	for {
		select {
		case mask := <-ch:
			fn(mask)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Watchers returns the number of active watchers.
func (b *Bot) Watchers() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.watchers)
}

// Press forces the switches until the robot moves again.
func (b *Bot) Press(m bump.Mask) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.setBumps(m)
}

// AddToLoop implements LoopAdder.
func (b *Bot) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvTop, fx.ControlFunc(b.Update))
	l.AddController(fx.PrLvPostProc, fx.ControlFunc(b.NotifyChanges))
}

// Update moves the robot to the loop time before sensing.
func (b *Bot) Update(cc fx.ControlContext) error {
	b.Step(cc)
	return nil
}

// Step moves the robot to the time of ctx. A robot running into an
// obstacle stays where it was and presses the switches.
func (b *Bot) Step(ctx physics.Context) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.engine.Moving() {
		return
	}
	prev := b.body.pose
	b.engine.Execute(ctx)
	hits := b.hits(b.body.pose)
	if hits != 0 {
		b.engine.Block(ctx, prev)
	}
	b.setBumps(hits)
	b.changes++
}

// NotifyChanges notifies object changes.
func (b *Bot) NotifyChanges(cc fx.ControlContext) error {
	b.lock.Lock()
	changes := b.changes
	b.changes = 0
	b.lock.Unlock()
	if changes > 0 && b.HasListeners() {
		b.ObjectsChanged(cc, b)
	}
	return nil
}

func (b *Bot) hits(pose sim.Pose2D) (m bump.Mask) {
	for n := range BumpAngles {
		if _, ok := b.Track.Hit(b.BumpPos(pose, n)); ok {
			m |= 1 << uint(n)
		}
	}
	return
}

func (b *Bot) setBumps(m bump.Mask) {
	if m == b.bumps {
		return
	}
	b.bumps = m
	glog.V(2).Infof("sim bumps %v", m.Pressed())
	for id, ch := range b.watchers {
		select {
		case ch <- m:
		default:
			glog.Warningf("bump watcher %d is behind, mask %v dropped", id, m)
		}
	}
}

func (b *Bot) now() physics.Context {
	return physics.At(context.Background(), b.Clock())
}
