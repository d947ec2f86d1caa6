package kdtree

import "fmt"

type bound struct {
	point []float64
	axis  int
	left  bool
}

// Validate walks the whole tree and checks that every node sorts strictly
// before each ancestor it lies to the left of and strictly after each
// ancestor it lies to the right of (which also rules out duplicates), that
// depth tags increase by one per level, and that Size matches the node count.
// It costs O(n·height) and is meant for tests and diagnostics.
func (t *Tree) Validate() error {
	count := 0
	var walk func(n *Node, depth int, bounds []bound) error
	walk = func(n *Node, depth int, bounds []bound) error {
		if n == nil {
			return nil
		}
		count++
		if n.depth != depth {
			return fmt.Errorf("node %v has depth %d, expected %d: %w", n.point, n.depth, depth, ErrInvariant)
		}
		if len(n.point.Coords) != t.k {
			return fmt.Errorf("node %v has %d coordinates: %w", n.point, len(n.point.Coords), ErrInvariant)
		}
		for _, b := range bounds {
			c := superKeyCompare(n.point.Coords, b.point, b.axis, t.k)
			if (b.left && c >= 0) || (!b.left && c <= 0) {
				side := "right"
				if b.left {
					side = "left"
				}
				return fmt.Errorf("node %v is in the %s subtree of %v on axis %d: %w",
					n.point, side, b.point, b.axis, ErrInvariant)
			}
		}

		axis := n.axis(t.k)
		next := append(bounds[:len(bounds):len(bounds)], bound{point: n.point.Coords, axis: axis, left: true})
		if err := walk(n.left, depth+1, next); err != nil {
			return err
		}
		next[len(next)-1].left = false
		return walk(n.right, depth+1, next)
	}

	if err := walk(t.root, 0, nil); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("tree reports size %d but holds %d nodes: %w", t.size, count, ErrInvariant)
	}
	return nil
}
