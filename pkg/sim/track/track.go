// Package track defines the simulated floor: a line drawn as a polyline and
// rectangular obstacles.
package track

import (
	"fmt"
	"io/ioutil"
	"math"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/robotalks/linebot/pkg/sim"
)

// DefaultWidth is the width (mm) of the line, a strip of electrical tape.
const DefaultWidth float64 = 19

// Point is a point on the floor.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Start is the initial pose of the robot.
type Start struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	// Heading is in degrees, counterclockwise from the X axis.
	Heading float64 `yaml:"heading"`
}

// Obstacle is a rectangle the robot bumps into.
type Obstacle struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
}

// Track is the floor layout.
type Track struct {
	Name      string     `yaml:"name"`
	Width     float64    `yaml:"width,omitempty"`
	Closed    bool       `yaml:"closed,omitempty"`
	Points    []Point    `yaml:"points"`
	Start     Start      `yaml:"start"`
	Obstacles []Obstacle `yaml:"obstacles,omitempty"`
}

// Pos converts the point.
func (p Point) Pos() sim.Pos2D {
	return sim.Pos2D{X: p.X, Y: p.Y}
}

// Pose converts the start pose.
func (s Start) Pose() sim.Pose2D {
	return sim.Pose2D{Pos2D: sim.Pos2D{X: s.X, Y: s.Y}, Orientation: sim.AngleFromDegrees(s.Heading)}
}

// Rect converts the obstacle.
func (o Obstacle) Rect() sim.Rect {
	return sim.Rect{Pos2D: sim.Pos2D{X: o.X, Y: o.Y}, Size2D: sim.Size2D{CX: o.W, CY: o.H}}
}

// Validate checks the track.
func (t *Track) Validate() error {
	if len(t.Points) < 2 {
		return fmt.Errorf("track %s: at least 2 points required", t.Name)
	}
	if t.Width <= 0 {
		return fmt.Errorf("track %s: invalid line width %v", t.Name, t.Width)
	}
	for n, o := range t.Obstacles {
		if o.W <= 0 || o.H <= 0 {
			return fmt.Errorf("track %s: obstacle %d has empty size", t.Name, n)
		}
	}
	return nil
}

// Segments returns the number of line segments.
func (t *Track) Segments() int {
	if t.Closed && len(t.Points) > 2 {
		return len(t.Points)
	}
	return len(t.Points) - 1
}

// Segment returns the ends of segment n.
func (t *Track) Segment(n int) (sim.Pos2D, sim.Pos2D) {
	return t.Points[n].Pos(), t.Points[(n+1)%len(t.Points)].Pos()
}

// Distance is the distance from p to the center of the line.
func (t *Track) Distance(p sim.Pos2D) float64 {
	dist := math.Inf(1)
	for n := t.Segments() - 1; n >= 0; n-- {
		a, b := t.Segment(n)
		if d := p.SegmentDist(a, b); d < dist {
			dist = d
		}
	}
	return dist
}

// OnLine tells whether p is on the line.
func (t *Track) OnLine(p sim.Pos2D) bool {
	return t.Distance(p) <= t.Width/2
}

// Hit returns the index of the obstacle containing p.
func (t *Track) Hit(p sim.Pos2D) (int, bool) {
	for n, o := range t.Obstacles {
		if o.Rect().Contains(p) {
			return n, true
		}
	}
	return -1, false
}

// Bounds is the rectangle covering the line and obstacles.
func (t *Track) Bounds() sim.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	extend := func(x0, y0, x1, y1 float64) {
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}
	for _, p := range t.Points {
		extend(p.X, p.Y, p.X, p.Y)
	}
	for _, o := range t.Obstacles {
		extend(o.X, o.Y, o.X+o.W, o.Y+o.H)
	}
	return sim.Rect{Pos2D: sim.Pos2D{X: minX, Y: minY}, Size2D: sim.Size2D{CX: maxX - minX, CY: maxY - minY}}
}

// Parse decodes a track from YAML.
func Parse(data []byte) (*Track, error) {
	t := &Track{Width: DefaultWidth}
	if err := yaml.UnmarshalStrict(data, t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile reads a track from a YAML file.
func LoadFile(fn string) (*Track, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	return t, nil
}

// Load returns a built-in track by name or loads the file.
func Load(nameOrFile string) (*Track, error) {
	if fn, ok := builtins[nameOrFile]; ok {
		return fn(), nil
	}
	return LoadFile(nameOrFile)
}

// Names lists the built-in tracks.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtins = map[string]func() *Track{
	"oval":     func() *Track { return Oval(600, 250, nil) },
	"oval-box": func() *Track { return Oval(600, 250, []Obstacle{{Name: "box", X: 150, Y: -300, W: 100, H: 100}}) },
	"zigzag":   Zigzag,
}

// Oval is a closed stadium of two straights of length joined by half
// circles of radius, centered on the origin.
func Oval(length, radius float64, obstacles []Obstacle) *Track {
	const steps = 24
	t := &Track{
		Name:      "oval",
		Width:     DefaultWidth,
		Closed:    true,
		Start:     Start{X: 0, Y: -radius},
		Obstacles: obstacles,
	}
	if len(obstacles) > 0 {
		t.Name = "oval-box"
	}
	arc := func(cx, from float64) {
		for n := 0; n <= steps; n++ {
			a := from + math.Pi*float64(n)/steps
			t.Points = append(t.Points, Point{X: cx + radius*math.Cos(a), Y: radius * math.Sin(a)})
		}
	}
	arc(length/2, -math.Pi/2)
	arc(-length/2, math.Pi/2)
	return t
}

// Zigzag is an open line with sharp corners.
func Zigzag() *Track {
	return &Track{
		Name:  "zigzag",
		Width: DefaultWidth,
		Points: []Point{
			{X: -500, Y: 0}, {X: -250, Y: 0}, {X: -100, Y: 150},
			{X: 100, Y: -150}, {X: 250, Y: 0}, {X: 600, Y: 0},
		},
		Start:     Start{X: -450, Y: 0},
		Obstacles: []Obstacle{{Name: "wall", X: 650, Y: -200, W: 40, H: 400}},
	}
}
