package kdtree

// Remove deletes the point exactly equal to p (coordinates and strength)
// and reports whether it was present.
//
// A matched interior node is not unlinked. Its point is overwritten by the
// minimum of a subtree on the node's own axis, and that point's original
// node is then removed recursively. When only a left subtree exists, the
// rewritten left subtree is moved into the right slot, since everything left
// in it now sorts after the promoted minimum.
func (t *Tree) Remove(p Point) bool {
	if !t.accepts(p) {
		return false
	}
	var removed bool
	t.root, removed = t.remove(t.root, p)
	if removed {
		t.size--
	}
	return removed
}

func (t *Tree) remove(n *Node, p Point) (*Node, bool) {
	if n == nil {
		return nil, false
	}

	axis := n.axis(t.k)
	c := superKeyCompare(p.Coords, n.point.Coords, axis, t.k)
	if c < 0 {
		var ok bool
		n.left, ok = t.remove(n.left, p)
		return n, ok
	}
	if c > 0 {
		var ok bool
		n.right, ok = t.remove(n.right, p)
		return n, ok
	}

	// Locations are unique, so a strength mismatch here means p is absent.
	if p.Strength != n.point.Strength {
		return n, false
	}

	switch {
	case n.right != nil:
		succ := t.findMin(n.right, axis)
		n.point = succ.point
		n.right, _ = t.remove(n.right, succ.point)
	case n.left != nil:
		succ := t.findMin(n.left, axis)
		n.point = succ.point
		n.right, _ = t.remove(n.left, succ.point)
		n.left = nil
	default:
		return nil, true
	}
	return n, true
}

// findMin returns the node holding the smallest point in the subtree rooted
// at n, ordered by the superkey starting at axis.
func (t *Tree) findMin(n *Node, axis int) *Node {
	if n == nil {
		return nil
	}

	// On a level that splits on axis, everything to the right sorts after n.
	if n.axis(t.k) == axis {
		if n.left == nil {
			return n
		}
		return t.findMin(n.left, axis)
	}

	best := n
	for _, cand := range [2]*Node{t.findMin(n.left, axis), t.findMin(n.right, axis)} {
		if cand != nil && superKeyCompare(cand.point.Coords, best.point.Coords, axis, t.k) < 0 {
			best = cand
		}
	}
	return best
}
