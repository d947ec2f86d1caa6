package kdtree

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Point is a location in k-space plus the return strength reported by the
// sensor for that location.
type Point struct {
	Coords   []float64
	Strength float64
}

// NewPoint returns a 3-D point.
func NewPoint(x, y, z, strength float64) Point {
	return Point{Coords: []float64{x, y, z}, Strength: strength}
}

// FromPolar converts a planar scan reading (bearing in degrees, range) into a
// 3-D point on the z=0 plane.
func FromPolar(angleDeg, distance, strength float64) Point {
	rad := angleDeg * math.Pi / 180.0
	return NewPoint(distance*math.Cos(rad), distance*math.Sin(rad), 0, strength)
}

// Dims returns the number of coordinates.
func (p Point) Dims() int {
	return len(p.Coords)
}

// Clone returns a deep copy of p.
func (p Point) Clone() Point {
	c := Point{Strength: p.Strength}
	if p.Coords != nil {
		c.Coords = make([]float64, len(p.Coords))
		copy(c.Coords, p.Coords)
	}
	return c
}

// IsFinite reports whether every coordinate is a finite number. Strength is
// not checked.
func (p Point) IsFinite() bool {
	for _, c := range p.Coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Equal reports exact component-wise equality of coordinates and strength.
// No tolerance is applied.
func (p Point) Equal(q Point) bool {
	return p.SameLocation(q) && p.Strength == q.Strength
}

// SameLocation reports exact equality of the coordinates only.
func (p Point) SameLocation(q Point) bool {
	if len(p.Coords) != len(q.Coords) {
		return false
	}
	for i := range p.Coords {
		if p.Coords[i] != q.Coords[i] {
			return false
		}
	}
	return true
}

// Distance returns the Euclidean distance between the locations of p and q.
// Both points must have the same number of coordinates.
func (p Point) Distance(q Point) float64 {
	return floats.Distance(p.Coords, q.Coords, 2)
}

func (p Point) String() string {
	parts := make([]string, len(p.Coords))
	for i, c := range p.Coords {
		parts[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return fmt.Sprintf("(%s; s=%g)", strings.Join(parts, ", "), p.Strength)
}

// distSq is the squared Euclidean distance over the first len(a) coordinates.
func distSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
