// Package diffdrive simulates a two wheeled differential drivetrain.
package diffdrive

import (
	"math"
	"time"

	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/sim"
	"github.com/robotalks/linebot/pkg/sim/physics"
)

// Defaults
const (
	DefaultWheelBase float64 = 140
	DefaultSpeedMax  float64 = 500
)

// Engine implements physics.DiffDrive.
type Engine struct {
	Object sim.Placeable2D
	// WheelBase is the distance (mm) between the wheels.
	WheelBase float64
	// SpeedMax is the wheel speed (mm/s) at drive.DutyMax.
	SpeedMax float64

	state state
}

type state interface {
	estimate(now time.Time) (sim.Pose2D, state)
}

// New creates the engine.
func New(obj sim.Placeable2D) *Engine {
	return &Engine{Object: obj, WheelBase: DefaultWheelBase, SpeedMax: DefaultSpeedMax}
}

// WheelSpeeds converts a command to the speed (mm/s) of each wheel.
func (e *Engine) WheelSpeeds(cmd drive.Command) (left, right float64) {
	l, r := cmd.WheelSigns()
	scale := e.SpeedMax / float64(drive.DutyMax)
	return float64(l) * float64(cmd.Left) * scale, float64(r) * float64(cmd.Right) * scale
}

// Apply changes the wheel speeds from now on.
func (e *Engine) Apply(ctx physics.Context, cmd drive.Command) {
	left, right := e.WheelSpeeds(cmd)
	e.state = newMotion(e.estimatePose(ctx), ctx.Time(), left, right, e.WheelBase)
}

// Moving tells whether any wheel is turning.
func (e *Engine) Moving() bool {
	return e.state != nil
}

// Execute moves the object to the estimated pose.
func (e *Engine) Execute(ctx physics.Context) {
	if s := e.state; s != nil {
		var pose sim.Pose2D
		pose, e.state = s.estimate(ctx.Time())
		e.Object.SetPose2D(pose)
	}
}

// Block places the object at pose and keeps the wheel speeds, like a
// drivetrain stalled against an obstacle.
func (e *Engine) Block(ctx physics.Context, pose sim.Pose2D) {
	pose = e.Object.SetPose2D(pose)
	if m, ok := e.state.(*motion); ok && m != nil {
		e.state = newMotion(pose, ctx.Time(), m.left, m.right, m.wheelBase)
	}
}

func (e *Engine) estimatePose(ctx physics.Context) (pose sim.Pose2D) {
	if s := e.state; s != nil {
		pose, e.state = s.estimate(ctx.Time())
		pose = e.Object.SetPose2D(pose)
	} else {
		pose = e.Object.Position2D()
	}
	return
}

type motion struct {
	startPose sim.Pose2D
	startTime time.Time
	left      float64
	right     float64
	wheelBase float64
}

func newMotion(pose sim.Pose2D, now time.Time, left, right, wheelBase float64) state {
	if left == 0 && right == 0 {
		return nil
	}
	return &motion{startPose: pose, startTime: now, left: left, right: right, wheelBase: wheelBase}
}

func (s *motion) estimate(now time.Time) (sim.Pose2D, state) {
	secs := now.Sub(s.startTime).Seconds()
	pose := s.startPose
	speed := (s.left + s.right) / 2
	omega := (s.right - s.left) / s.wheelBase
	if math.Abs(omega) < 1e-9 {
		pose.Pos2D.OffsetBy(pose.Orientation.Project(speed * secs))
		return pose, s
	}
	// rotates around the instantaneous center of curvature on the left
	// (positive radius) or right of the robot.
	radius := speed / omega
	from := pose.Orientation
	to := from.AddRadians(omega * secs)
	pose.X += radius * (to.Sin() - from.Sin())
	pose.Y -= radius * (to.Cos() - from.Cos())
	pose.Orientation = to
	return pose, s
}
