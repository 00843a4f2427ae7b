package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAngle(t *testing.T) {
	testCases := []struct {
		deg, expect float64
	}{
		{0, 0},
		{90, 90},
		{270, -90},
		{-270, 90},
		{720 + 45, 45},
	}
	for _, tc := range testCases {
		require.InDelta(t, tc.expect, AngleFromDegrees(tc.deg).Degrees(), 1e-9, "%v", tc.deg)
	}
	require.InDelta(t, -math.Pi/2, AngleFromDegrees(135).AddDegrees(135).Radians(), 1e-9)
}

func TestSegmentDist(t *testing.T) {
	a, b := Pos2D{}, Pos2D{X: 10}
	require.InDelta(t, 3, Pos2D{X: 5, Y: 3}.SegmentDist(a, b), 1e-9)
	require.InDelta(t, 5, Pos2D{X: 13, Y: 4}.SegmentDist(a, b), 1e-9)
	require.InDelta(t, 2, Pos2D{X: -2}.SegmentDist(a, b), 1e-9)
	require.InDelta(t, 5, Pos2D{X: 3, Y: 4}.SegmentDist(a, a), 1e-9)
}

func TestPoseOffset(t *testing.T) {
	pose := Pose2D{Pos2D: Pos2D{X: 1, Y: 1}, Orientation: AngleFromDegrees(90)}
	p := pose.Offset(10, 2)
	require.InDelta(t, -1, p.X, 1e-9)
	require.InDelta(t, 11, p.Y, 1e-9)

	rc := Rect{Pos2D: Pos2D{X: -1, Y: -1}, Size2D: Size2D{CX: 2, CY: 4}}
	require.True(t, rc.Contains(Pos2D{X: 0, Y: 2}))
	require.False(t, rc.Contains(Pos2D{X: 0, Y: 4}))
	require.Equal(t, Pos2D{X: 0, Y: 1}, rc.Center())
}

func TestAngleDiff(t *testing.T) {
	a, b := AngleFromDegrees(170), AngleFromDegrees(-170)
	require.InDelta(t, 20, a.Diff(b).Degrees(), 1e-9)
	require.InDelta(t, -20, b.Diff(a).Degrees(), 1e-9)
	require.InDelta(t, 45, AngleOf(Pos2D{X: 1, Y: 1}).Degrees(), 1e-9)
}
