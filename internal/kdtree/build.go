package kdtree

import "fmt"

// Build replaces the content of t with a minimal-height tree over the
// distinct points in pts. Points with identical coordinates are stored once;
// the first occurrence in the sorted order wins.
//
// The construction keeps k reference orderings of the input, one per
// starting axis of the superkey. Each level takes the median of the ordering
// for its own axis and partitions the other orderings around it in linear
// time, so the orderings rotate by one axis per level and never need
// re-sorting. Total cost is O(k·n·log n) time and O(k·n) extra space.
//
// pts is never modified. If any point has the wrong dimensionality or a
// non-finite coordinate the tree is left unchanged.
func (t *Tree) Build(pts []Point) error {
	for i := range pts {
		if len(pts[i].Coords) != t.k {
			return fmt.Errorf("build: point %d has %d coordinates, tree has %d: %w",
				i, len(pts[i].Coords), t.k, ErrDimensionMismatch)
		}
		if !pts[i].IsFinite() {
			return fmt.Errorf("build: point %d %v: %w", i, pts[i], ErrNonFinite)
		}
	}
	if len(pts) == 0 {
		t.Reset()
		return nil
	}

	work := make([]Point, len(pts))
	for i := range pts {
		work[i] = pts[i].Clone()
	}

	scratch := make([]*Point, len(work))
	refs := make([][]*Point, t.k)
	for axis := range refs {
		refs[axis] = make([]*Point, len(work))
		for i := range work {
			refs[axis][i] = &work[i]
		}
		mergeSort(refs[axis], scratch, 0, len(work)-1, axis, t.k)
	}

	end := -1
	for axis := range refs {
		e, err := dedupSorted(refs[axis], axis, t.k)
		if err != nil {
			return err
		}
		if end >= 0 && e != end {
			return fmt.Errorf("build: ordering %d holds %d distinct points, ordering 0 holds %d: %w",
				axis, e+1, end+1, ErrOrderViolation)
		}
		end = e
	}

	root, err := buildRange(refs, scratch, 0, end, 0, t.k)
	if err != nil {
		return err
	}
	t.root = root
	t.size = end + 1
	return nil
}

// dedupSorted compacts refs in place, dropping entries equal to their
// predecessor, and returns the index of the last kept entry. A predecessor
// that compares greater means the sort is broken.
func dedupSorted(refs []*Point, axis, k int) (int, error) {
	end := 0
	for j := 1; j < len(refs); j++ {
		c := superKeyCompare(refs[j].Coords, refs[j-1].Coords, axis, k)
		if c < 0 {
			return 0, fmt.Errorf("build: ordering %d: element %d sorts before element %d: %w",
				axis, j, j-1, ErrOrderViolation)
		}
		if c > 0 {
			end++
			refs[end] = refs[j]
		}
	}
	return end, nil
}

// buildRange builds the subtree over refs[*][left..right]. refs[0] is sorted
// by the superkey of the axis for depth; refs[i] by the axis i levels later.
func buildRange(refs [][]*Point, scratch []*Point, left, right, depth, k int) (*Node, error) {
	axis := depth % k

	switch right - left {
	case 0:
		return newNode(*refs[0][left], depth), nil
	case 1:
		n := newNode(*refs[0][left], depth)
		n.right = newNode(*refs[0][right], depth+1)
		return n, nil
	case 2:
		n := newNode(*refs[0][left+1], depth)
		lo, hi := refs[0][left], refs[0][right]
		if superKeyCompare(lo.Coords, hi.Coords, axis, k) > 0 {
			lo, hi = hi, lo
		}
		n.left = newNode(*lo, depth+1)
		n.right = newNode(*hi, depth+1)
		return n, nil
	}

	mid := left + (right-left)/2
	median := refs[0][mid]
	n := newNode(*median, depth)

	// refs[0] is consumed by this level; park it in scratch and partition
	// each remaining ordering into the slot before it.
	copy(scratch[left:right+1], refs[0][left:right+1])
	for i := 1; i < k; i++ {
		lower, upper := left-1, mid
		for j := left; j <= right; j++ {
			c := superKeyCompare(refs[i][j].Coords, median.Coords, axis, k)
			switch {
			case c < 0:
				lower++
				refs[i-1][lower] = refs[i][j]
			case c > 0:
				upper++
				refs[i-1][upper] = refs[i][j]
			}
		}
		if lower != mid-1 || upper != right {
			return nil, fmt.Errorf("build: partition of ordering %d around depth %d median is unbalanced (%d/%d): %w",
				i, depth, lower-left+1, upper-mid, ErrOrderViolation)
		}
	}
	copy(refs[k-1][left:right+1], scratch[left:right+1])

	var err error
	if n.left, err = buildRange(refs, scratch, left, mid-1, depth+1, k); err != nil {
		return nil, err
	}
	if n.right, err = buildRange(refs, scratch, mid+1, right, depth+1, k); err != nil {
		return nil, err
	}
	return n, nil
}
