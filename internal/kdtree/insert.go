package kdtree

// Insert adds p to the tree. A point whose coordinates already exist in the
// tree is ignored without error, even if its strength differs. A point of
// the wrong dimensionality or with a non-finite coordinate is rejected.
//
// Insert does not rebalance; adversarial insertion orders degrade the height
// towards O(n).
func (t *Tree) Insert(p Point) error {
	if err := t.checkPoint(p); err != nil {
		return err
	}

	link := &t.root
	depth := 0
	for *link != nil {
		n := *link
		c := superKeyCompare(p.Coords, n.point.Coords, n.axis(t.k), t.k)
		switch {
		case c < 0:
			link = &n.left
		case c > 0:
			link = &n.right
		default:
			return nil
		}
		depth = n.depth + 1
	}

	*link = newNode(p.Clone(), depth)
	t.size++
	return nil
}

// InsertAll inserts each point in order and returns the number actually
// added (duplicates excluded).
func (t *Tree) InsertAll(pts []Point) (int, error) {
	before := t.size
	for _, p := range pts {
		if err := t.Insert(p); err != nil {
			return t.size - before, err
		}
	}
	return t.size - before, nil
}
