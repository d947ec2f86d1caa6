package kdtree

import "fmt"

// Tree is a k-d tree with a fixed dimensionality chosen at construction.
// The zero value is not usable; create trees with New or NewFromPoints.
type Tree struct {
	root *Node
	k    int
	size int
}

// New returns an empty tree over k-dimensional points.
func New(k int) (*Tree, error) {
	if k < 1 {
		return nil, fmt.Errorf("new tree with k=%d: %w", k, ErrInvalidDimensions)
	}
	return &Tree{k: k}, nil
}

// NewFromPoints returns a balanced tree over the distinct points in pts.
func NewFromPoints(k int, pts []Point) (*Tree, error) {
	t, err := New(k)
	if err != nil {
		return nil, err
	}
	if err := t.Build(pts); err != nil {
		return nil, err
	}
	return t, nil
}

// Dims returns the dimensionality k of the tree.
func (t *Tree) Dims() int {
	return t.k
}

// Size returns the number of stored points.
func (t *Tree) Size() int {
	return t.size
}

// Root returns the root node for read-only inspection, or nil when empty.
// The returned node is invalidated by the next Build.
func (t *Tree) Root() *Node {
	return t.root
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Height() int {
	return height(t.root)
}

// Reset drops every stored point.
func (t *Tree) Reset() {
	t.root = nil
	t.size = 0
}

// Points returns copies of all stored points in pre-order.
func (t *Tree) Points() []Point {
	out := make([]Point, 0, t.size)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		out = append(out, n.point.Clone())
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	return out
}

// Contains reports whether a point at the location of p is stored. Strength
// is ignored, as it is by Insert's duplicate check. It follows a single
// root-to-leaf path.
func (t *Tree) Contains(p Point) bool {
	if !t.accepts(p) {
		return false
	}
	n := t.root
	for n != nil {
		c := superKeyCompare(p.Coords, n.point.Coords, n.axis(t.k), t.k)
		switch {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return true
		}
	}
	return false
}

func (t *Tree) checkPoint(p Point) error {
	if len(p.Coords) != t.k {
		return fmt.Errorf("point has %d coordinates, tree has %d: %w", len(p.Coords), t.k, ErrDimensionMismatch)
	}
	if !p.IsFinite() {
		return fmt.Errorf("point %v: %w", p, ErrNonFinite)
	}
	return nil
}

// accepts reports whether p can be compared against stored points. Lookups
// and queries treat any other point as absent.
func (t *Tree) accepts(p Point) bool {
	return len(p.Coords) == t.k && p.IsFinite()
}
