package sim

import "math"

// Angle is an angle in radians normalized to [-π, π].
type Angle float64

const degree = math.Pi / 180

// AngleFromDegrees creates Angle from degrees.
func AngleFromDegrees(d float64) Angle {
	return AngleFromRadians(d * degree)
}

// AngleFromRadians creates Angle from radians.
func AngleFromRadians(r float64) Angle {
	return Angle(math.Remainder(r, 2*math.Pi))
}

// AngleOf returns the direction of the vector from the origin to p.
func AngleOf(p Pos2D) Angle {
	return Angle(math.Atan2(p.Y, p.X))
}

// Add adds an Angle.
func (a Angle) Add(a1 Angle) Angle {
	return AngleFromRadians(float64(a) + float64(a1))
}

// AddRadians adds radians.
func (a Angle) AddRadians(r float64) Angle {
	return AngleFromRadians(float64(a) + r)
}

// AddDegrees adds degrees.
func (a Angle) AddDegrees(d float64) Angle {
	return a.AddRadians(d * degree)
}

// Diff returns the signed turn from a to a1, in [-π, π].
func (a Angle) Diff(a1 Angle) Angle {
	return AngleFromRadians(float64(a1) - float64(a))
}

// Radians gets angle in radians.
func (a Angle) Radians() float64 { return float64(a) }

// Degrees gets angle in degrees.
func (a Angle) Degrees() float64 { return float64(a) / degree }

// Cos wraps math.Cos.
func (a Angle) Cos() float64 { return math.Cos(float64(a)) }

// Sin wraps math.Sin.
func (a Angle) Sin() float64 { return math.Sin(float64(a)) }

// Project projects dist along the angle into X and Y.
func (a Angle) Project(dist float64) Pos2D {
	return Pos2D{X: dist * a.Cos(), Y: dist * a.Sin()}
}
