package sim

import "math"

// Size2D defines the rectangular size in 2D.
type Size2D struct {
	CX, CY float64
}

// Pos2D defines the position in 2D, in millimetres.
type Pos2D struct {
	X, Y float64
}

// Rect defines a rectangle in 2D.
type Rect struct {
	Pos2D
	Size2D
}

// Pose2D defines the pose in 2D.
type Pose2D struct {
	Pos2D
	Orientation Angle
}

// Rectangular object provides an rectangluar outline dimension.
type Rectangular interface {
	OutlineRect() Rect
}

// Positionable2D object maintains a 2D position.
type Positionable2D interface {
	Position2D() Pose2D
}

// Placeable2D object can be moved with a new pose on a 2D plane.
type Placeable2D interface {
	Positionable2D
	SetPose2D(Pose2D) Pose2D
}

// Add is a helper to add Pos2D.
func (p Pos2D) Add(p1 Pos2D) Pos2D {
	return Pos2D{X: p.X + p1.X, Y: p.Y + p1.Y}
}

// Sub returns p - p1.
func (p Pos2D) Sub(p1 Pos2D) Pos2D {
	return Pos2D{X: p.X - p1.X, Y: p.Y - p1.Y}
}

// OffsetBy performs Add in-place.
func (p *Pos2D) OffsetBy(p1 Pos2D) *Pos2D {
	p.X += p1.X
	p.Y += p1.Y
	return p
}

// Dist is the distance between two positions.
func (p Pos2D) Dist(p1 Pos2D) float64 {
	return math.Hypot(p.X-p1.X, p.Y-p1.Y)
}

// SegmentDist is the distance from p to the segment a-b.
func (p Pos2D) SegmentDist(a, b Pos2D) float64 {
	ab, ap := b.Sub(a), p.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := (ap.X*ab.X + ap.Y*ab.Y) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Dist(Pos2D{X: a.X + t*ab.X, Y: a.Y + t*ab.Y})
}

// Contains tells whether p is inside the rectangle.
func (r Rect) Contains(p Pos2D) bool {
	return p.X >= r.X && p.X <= r.X+r.CX && p.Y >= r.Y && p.Y <= r.Y+r.CY
}

// Center is the center of the rectangle.
func (r Rect) Center() Pos2D {
	return Pos2D{X: r.X + r.CX/2, Y: r.Y + r.CY/2}
}

// Offset locates a point in the frame of the pose: ahead along the
// orientation and left perpendicular to it.
func (p Pose2D) Offset(ahead, left float64) Pos2D {
	return p.Pos2D.
		Add(p.Orientation.Project(ahead)).
		Add(p.Orientation.AddDegrees(90).Project(left))
}
