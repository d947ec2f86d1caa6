package kdtree

import (
	"math"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/emirpasic/gods/utils"
)

// NearestNeighbor returns a copy of the stored point closest to target and
// true, or the zero Point and false when the tree is empty or target has the
// wrong dimensionality or a non-finite coordinate. Among equally close points
// the first one reached in traversal order is returned.
func (t *Tree) NearestNeighbor(target Point) (Point, bool) {
	if t.root == nil || !t.accepts(target) {
		return Point{}, false
	}
	s := nnSearch{k: t.k, target: target.Coords, bestSq: math.Inf(1)}
	s.visit(t.root)
	return s.best.point.Clone(), true
}

type nnSearch struct {
	k      int
	target []float64
	best   *Node
	bestSq float64
}

func (s *nnSearch) visit(n *Node) {
	if n == nil {
		return
	}
	if d := distSq(n.point.Coords, s.target); s.best == nil || d < s.bestSq {
		s.bestSq = d
		s.best = n
	}

	axis := n.axis(s.k)
	near, far := n.right, n.left
	if superKeyCompare(s.target, n.point.Coords, axis, s.k) < 0 {
		near, far = n.left, n.right
	}
	s.visit(near)

	// The far side can only hold a closer point if the splitting plane is
	// nearer than the current best.
	diff := s.target[axis] - n.point.Coords[axis]
	if diff*diff < s.bestSq {
		s.visit(far)
	}
}

type candidate struct {
	node   *Node
	distSq float64
}

// byDistanceDesc orders candidates farthest first so the heap root is the
// current worst of the kept set.
func byDistanceDesc(a, b interface{}) int {
	return -utils.Float64Comparator(a.(candidate).distSq, b.(candidate).distSq)
}

// KNearest returns copies of the n stored points closest to target, nearest
// first. Fewer points are returned when the tree holds fewer than n.
func (t *Tree) KNearest(target Point, n int) []Point {
	if t.root == nil || n <= 0 || !t.accepts(target) {
		return nil
	}

	heap := binaryheap.NewWith(byDistanceDesc)
	var visit func(nd *Node)
	visit = func(nd *Node) {
		if nd == nil {
			return
		}
		heap.Push(candidate{node: nd, distSq: distSq(nd.point.Coords, target.Coords)})
		if heap.Size() > n {
			heap.Pop()
		}

		axis := nd.axis(t.k)
		near, far := nd.right, nd.left
		if superKeyCompare(target.Coords, nd.point.Coords, axis, t.k) < 0 {
			near, far = nd.left, nd.right
		}
		visit(near)

		diff := target.Coords[axis] - nd.point.Coords[axis]
		worst, _ := heap.Peek()
		if heap.Size() < n || diff*diff < worst.(candidate).distSq {
			visit(far)
		}
	}
	visit(t.root)

	out := make([]Point, heap.Size())
	for i := len(out) - 1; i >= 0; i-- {
		v, _ := heap.Pop()
		out[i] = v.(candidate).node.point.Clone()
	}
	return out
}
