package kdtree

// Node is a vertex of a Tree. It exclusively owns its point and children.
// The depth is fixed at creation and selects the splitting axis
// (depth mod k). Nodes are only handed out for read-only inspection.
type Node struct {
	point       Point
	left, right *Node
	depth       int
}

func newNode(p Point, depth int) *Node {
	return &Node{point: p, depth: depth}
}

// Point returns a copy of the stored point.
func (n *Node) Point() Point {
	return n.point.Clone()
}

// Left returns the left child, or nil. It is nil-safe.
func (n *Node) Left() *Node {
	if n == nil {
		return nil
	}
	return n.left
}

// Right returns the right child, or nil. It is nil-safe.
func (n *Node) Right() *Node {
	if n == nil {
		return nil
	}
	return n.right
}

// Depth returns the depth at which the node was created.
func (n *Node) Depth() int {
	return n.depth
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.left == nil && n.right == nil
}

func (n *Node) axis(k int) int {
	return n.depth % k
}

func height(n *Node) int {
	if n == nil {
		return 0
	}
	l, r := height(n.left), height(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}
