package track

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/linebot/pkg/sim"
)

func TestOnLine(t *testing.T) {
	tr := Oval(600, 250, nil)
	require.NoError(t, tr.Validate())
	testCases := []struct {
		name string
		pos  sim.Pos2D
		on   bool
	}{
		{"start", sim.Pos2D{X: 0, Y: -250}, true},
		{"edge", sim.Pos2D{X: 0, Y: -250 + DefaultWidth/2 - 0.1}, true},
		{"beside", sim.Pos2D{X: 0, Y: -250 + DefaultWidth}, false},
		{"top straight", sim.Pos2D{X: 100, Y: 250}, true},
		{"right arc", sim.Pos2D{X: 550, Y: 0}, true},
		{"inside", sim.Pos2D{}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.on, tr.OnLine(tc.pos))
		})
	}
}

func TestHitAndBounds(t *testing.T) {
	tr, err := Load("oval-box")
	require.NoError(t, err)
	n, ok := tr.Hit(sim.Pos2D{X: 200, Y: -250})
	require.True(t, ok)
	require.Equal(t, 0, n)
	_, ok = tr.Hit(sim.Pos2D{X: 0, Y: -250})
	require.False(t, ok)

	b := tr.Bounds()
	require.InDelta(t, -550, b.X, 1e-9)
	require.InDelta(t, -300, b.Y, 1e-9)
	require.InDelta(t, 1100, b.CX, 1e-9)
	require.InDelta(t, 550, b.CY, 1e-9)
}

func TestParse(t *testing.T) {
	tr, err := Parse([]byte(`
name: line
points:
  - {x: 0, y: 0}
  - {x: 100, y: 0}
start: {x: 10, y: 0, heading: 0}
obstacles:
  - {name: wall, x: 120, y: -50, w: 10, h: 100}
`))
	require.NoError(t, err)
	require.Equal(t, DefaultWidth, tr.Width)
	require.Equal(t, 1, tr.Segments())
	require.True(t, tr.OnLine(sim.Pos2D{X: 50, Y: 5}))
	require.False(t, tr.OnLine(sim.Pos2D{X: 110, Y: 0}))
	require.Equal(t, sim.Pos2D{X: 10}, tr.Start.Pose().Pos2D)

	_, err = Parse([]byte("name: dot\npoints: [{x: 0, y: 0}]\n"))
	require.Error(t, err)
	_, err = Parse([]byte("name: bad\nwidht: 3\npoints: [{x: 0, y: 0}, {x: 1, y: 0}]\n"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "track")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "t.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte("name: t\nclosed: true\npoints: [{x: 0, y: 0}, {x: 100, y: 0}, {x: 0, y: 100}]\n"), 0644))
	tr, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, 3, tr.Segments())
	require.True(t, tr.OnLine(sim.Pos2D{X: 0, Y: 50}))
	require.Contains(t, Names(), "oval")
}
