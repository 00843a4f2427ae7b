package linebot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/sensor"
	"github.com/robotalks/linebot/pkg/sim/physics"
	"github.com/robotalks/linebot/pkg/sim/track"
)

type clock struct {
	now time.Time
}

func (c *clock) Time() time.Time { return c.now }

func (c *clock) advance(d time.Duration) physics.Context {
	c.now = c.now.Add(d)
	return physics.At(context.Background(), c.now)
}

func newBot(t *testing.T, trackName string) (*Bot, *clock) {
	tr, err := track.Load(trackName)
	require.NoError(t, err)
	c := &clock{now: time.Unix(0, 0)}
	b := New("linebot/sim", tr)
	b.Clock = c.Time
	return b, c
}

var forward = drive.Command{Direction: drive.Forward, Left: drive.DutyMax, Right: drive.DutyMax}

func TestBotSample(t *testing.T) {
	b, c := newBot(t, "oval")
	r, err := b.Sample()
	require.NoError(t, err)
	require.Equal(t, sensor.Reading(0x18), r)

	require.NoError(t, b.Apply(forward))
	b.Step(c.advance(100 * time.Millisecond))
	require.InDelta(t, 50, b.Position2D().X, 1e-6)
	r, err = b.Sample()
	require.NoError(t, err)
	require.Equal(t, sensor.Reading(0x18), r)
	require.Equal(t, r, b.Reading())

	// drifted left, the line is under the right sensors.
	b.SetPose2D(track.Start{X: 0, Y: -230}.Pose())
	r, err = b.Sample()
	require.NoError(t, err)
	require.Equal(t, sensor.Reading(0x06), r)

	require.NoError(t, b.Stop())
	require.False(t, b.Engine().Moving())
	require.Error(t, b.Apply(drive.Command{Direction: drive.Forward, Left: drive.DutyMax + 1}))
}

func TestBotIndicate(t *testing.T) {
	b, _ := newBot(t, "oval")
	require.NoError(t, b.Indicate(drive.Green))
	require.Equal(t, drive.Green, b.Color())
}

func TestBotBumps(t *testing.T) {
	b, c := newBot(t, "oval-box")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pressed := make(chan bump.Mask, 1)
	done := make(chan error, 1)
	go func() {
		done <- b.Watch(ctx, func(m bump.Mask) { pressed <- m })
	}()
	require.Equal(t, bump.Mask(0), <-pressed)
	require.Equal(t, 1, b.Watchers())

	require.NoError(t, b.Apply(forward))
	var hit bump.Mask
	for n := 0; n < 100 && hit == 0; n++ {
		b.Step(c.advance(10 * time.Millisecond))
		hit, _ = b.Read()
	}
	require.Equal(t, bump.Mask(0x0c), hit)
	x := b.Position2D().X
	require.True(t, x < 80, "stalled at %v", x)
	b.Step(c.advance(10 * time.Millisecond))
	require.Equal(t, x, b.Position2D().X)

	select {
	case m := <-pressed:
		require.Equal(t, bump.Mask(0x0c), m)
	case <-time.After(time.Second):
		t.Fatal("no bump event")
	}

	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.Equal(t, 0, b.Watchers())
}
