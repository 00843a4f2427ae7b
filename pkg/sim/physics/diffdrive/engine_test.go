package diffdrive

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/sim"
	"github.com/robotalks/linebot/pkg/sim/physics"
)

type body struct {
	pose sim.Pose2D
}

func (b *body) Position2D() sim.Pose2D { return b.pose }

func (b *body) SetPose2D(pose sim.Pose2D) sim.Pose2D {
	b.pose = pose
	return pose
}

const delta = 1e-6

func TestEngineEstimate(t *testing.T) {
	full := drive.DutyMax
	second := float64(time.Second) // non-constant so fractional durations convert
	testCases := []struct {
		name  string
		cmd   drive.Command
		after time.Duration
		x, y  float64
		deg   float64
	}{
		{
			name:  "stopped",
			cmd:   drive.Command{},
			after: time.Second,
		},
		{
			name:  "forward",
			cmd:   drive.Command{Direction: drive.Forward, Left: full, Right: full},
			after: time.Second,
			x:     DefaultSpeedMax,
		},
		{
			name:  "half forward",
			cmd:   drive.Command{Direction: drive.Forward, Left: full / 2, Right: full / 2},
			after: 2 * time.Second,
			x:     DefaultSpeedMax,
		},
		{
			name:  "backward",
			cmd:   drive.Command{Direction: drive.Backward, Left: full, Right: full},
			after: time.Second,
			x:     -DefaultSpeedMax,
		},
		{
			// pivot of 90 degrees: each wheel covers a quarter of the
			// circle around the center.
			name:  "pivot left",
			cmd:   drive.Command{Direction: drive.Left, Left: full, Right: full},
			after: time.Duration(math.Pi / 4 * DefaultWheelBase / DefaultSpeedMax * second),
			deg:   90,
		},
		{
			name:  "pivot right",
			cmd:   drive.Command{Direction: drive.Right, Left: full, Right: full},
			after: time.Duration(math.Pi / 4 * DefaultWheelBase / DefaultSpeedMax * second),
			deg:   -90,
		},
		{
			// left wheel stopped: the robot center runs a quarter circle
			// around the left wheel.
			name:  "arc left",
			cmd:   drive.Command{Direction: drive.Forward, Right: full},
			after: time.Duration(math.Pi / 2 * DefaultWheelBase / DefaultSpeedMax * second),
			x:     DefaultWheelBase / 2,
			y:     DefaultWheelBase / 2,
			deg:   90,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var start time.Time
			obj := &body{}
			e := New(obj)
			e.Apply(physics.At(context.Background(), start), tc.cmd)
			e.Execute(physics.At(context.Background(), start.Add(tc.after)))
			require.InDelta(t, tc.x, obj.pose.X, delta)
			require.InDelta(t, tc.y, obj.pose.Y, delta)
			require.InDelta(t, tc.deg, obj.pose.Orientation.Degrees(), 1e-3)
		})
	}
}

func TestEngineApplyKeepsPose(t *testing.T) {
	var start time.Time
	ctx := context.Background()
	obj := &body{}
	e := New(obj)
	e.Apply(physics.At(ctx, start), drive.Command{Direction: drive.Forward, Left: drive.DutyMax, Right: drive.DutyMax})
	require.True(t, e.Moving())
	e.Apply(physics.At(ctx, start.Add(time.Second)), drive.Command{})
	require.False(t, e.Moving())
	require.InDelta(t, DefaultSpeedMax, obj.pose.X, delta)
	e.Execute(physics.At(ctx, start.Add(2*time.Second)))
	require.InDelta(t, DefaultSpeedMax, obj.pose.X, delta)
}

func TestEngineBlock(t *testing.T) {
	var start time.Time
	ctx := context.Background()
	obj := &body{}
	e := New(obj)
	e.Apply(physics.At(ctx, start), drive.Command{Direction: drive.Forward, Left: drive.DutyMax, Right: drive.DutyMax})
	e.Block(physics.At(ctx, start.Add(time.Second)), sim.Pose2D{})
	require.True(t, e.Moving())
	e.Execute(physics.At(ctx, start.Add(2*time.Second)))
	require.InDelta(t, DefaultSpeedMax, obj.pose.X, delta)
}
