package common

import (
	"fmt"
	"math"
)

// Coord is the type of a single coordinate of a position or velocity
type Coord = float64

// Vector3 is type of entity position and velocity
type Vector3 struct {
	X Coord `json:"x" msgpack:"x"`
	Y Coord `json:"y" msgpack:"y"`
	Z Coord `json:"z" msgpack:"z"`
}

func (p Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// DistanceTo calculates distance between two positions
func (p Vector3) DistanceTo(o Vector3) Coord {
	return math.Sqrt(p.DistanceSqTo(o))
}

// DistanceSqTo calculates the squared distance between two positions
func (p Vector3) DistanceSqTo(o Vector3) Coord {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Sub calculates Vector3 p - Vector3 o
func (p Vector3) Sub(o Vector3) Vector3 {
	return Vector3{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

func (p Vector3) Add(o Vector3) Vector3 {
	return Vector3{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

// Mul calculates Vector3 p * m
func (p Vector3) Mul(m Coord) Vector3 {
	return Vector3{p.X * m, p.Y * m, p.Z * m}
}

// Len returns the length of the vector
func (p Vector3) Len() Coord {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// IsFinite returns if no coordinate is NaN or infinite
func (p Vector3) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// IsZero returns if all coordinates are 0
func (p Vector3) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// Normalized returns the unit vector of the same direction, or the zero vector
func (p Vector3) Normalized() Vector3 {
	d := p.Len()
	if d == 0 {
		return p
	}
	return Vector3{p.X / d, p.Y / d, p.Z / d}
}
