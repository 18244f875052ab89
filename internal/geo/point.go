// Package geo provides the small amount of 3D geometry geotree needs:
// points used as correlation anchors and the minimal bounding sphere used
// to merge disagreeing sibling anchors.
package geo

import (
	"fmt"
	"math"
)

// Point is a location in 3D space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Origin is the zero point.
var Origin = Point{}

// FromSlice builds a Point from a 3-element slice. An empty slice yields the origin.
func FromSlice(v []float64) (Point, error) {
	switch len(v) {
	case 0:
		return Origin, nil
	case 3:
		return Point{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return Point{}, fmt.Errorf("point needs 3 coordinates, got %d", len(v))
	}
}

// IsFinite reports whether no coordinate is NaN or infinite.
func (p Point) IsFinite() bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Slice returns the coordinates as a 3-element slice.
func (p Point) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f, p.Z * f} }

func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }

// Cross returns the cross product p x q.
func (p Point) Cross(q Point) Point {
	return Point{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Norm2 returns the squared length of p.
func (p Point) Norm2() float64 { return p.Dot(p) }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Sqrt(p.Sub(q).Norm2()) }

// Equal reports exact coordinate equality. Anchors written from the same
// computed value compare equal; no tolerance is applied.
func (p Point) Equal(q Point) bool {
	return p.X == q.X && p.Y == q.Y && p.Z == q.Z
}

// String implements fmt.Stringer.
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}
