package kdtree

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RadiusSearch returns copies of every stored point whose Euclidean distance
// to target is at most tol. Order is unspecified. An empty tree, a target of
// the wrong dimensionality or with a non-finite coordinate, or a negative or
// NaN tolerance yield no points.
func (t *Tree) RadiusSearch(target Point, tol float64) []Point {
	if t.root == nil || !t.accepts(target) || tol < 0 || math.IsNaN(tol) {
		return nil
	}
	return t.radiusSearch(t.root, target.Coords, tol, nil)
}

func (t *Tree) radiusSearch(n *Node, target []float64, tol float64, out []Point) []Point {
	if n == nil {
		return out
	}

	if within(n.point.Coords, target, tol) {
		out = append(out, n.point.Clone())
	}

	// Points equal to n on the splitting coordinate can sit on either side,
	// so both bounds are closed.
	axis := n.axis(t.k)
	split := n.point.Coords[axis]
	if target[axis]-tol <= split {
		out = t.radiusSearch(n.left, target, tol, out)
	}
	if target[axis]+tol >= split {
		out = t.radiusSearch(n.right, target, tol, out)
	}
	return out
}

// within applies the per-axis cube test first; it rejects most candidates
// before the exact distance is computed.
func within(p, target []float64, tol float64) bool {
	return inCube(p, target, tol) && floats.Distance(p, target, 2) <= tol
}

func inCube(p, center []float64, halfWidth float64) bool {
	for i := range p {
		if p[i] < center[i]-halfWidth || p[i] > center[i]+halfWidth {
			return false
		}
	}
	return true
}

// CountWithin returns the number of stored points within tol of target
// without copying them.
func (t *Tree) CountWithin(target Point, tol float64) int {
	if t.root == nil || !t.accepts(target) || tol < 0 || math.IsNaN(tol) {
		return 0
	}
	var count func(n *Node) int
	count = func(n *Node) int {
		if n == nil {
			return 0
		}
		c := 0
		if within(n.point.Coords, target.Coords, tol) {
			c++
		}
		axis := n.axis(t.k)
		split := n.point.Coords[axis]
		if target.Coords[axis]-tol <= split {
			c += count(n.left)
		}
		if target.Coords[axis]+tol >= split {
			c += count(n.right)
		}
		return c
	}
	return count(t.root)
}
