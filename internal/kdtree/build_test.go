package kdtree

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shape maps a path from the root ("" root, "L" left child, "LR" ...) to the
// coordinates stored there.
func shape(n *Node, path string, out map[string][]float64) {
	if n == nil {
		return
	}
	out[path] = n.point.Coords
	shape(n.left, path+"L", out)
	shape(n.right, path+"R", out)
}

func TestBuild_GoldenFixture(t *testing.T) {
	tree := mustTree(t, 3, goldenPoints())

	got := make(map[string][]float64)
	shape(tree.Root(), "", got)

	want := map[string][]float64{
		"":    {7, 2, 6},
		"L":   {5, 4, 2},
		"LL":  {2, 1, 3},
		"LLL": {6, 3, 1},
		"LLR": {2, 3, 3},
		"LR":  {1, 6, 8},
		"LRL": {3, 4, 5},
		"LRR": {4, 7, 9},
		"R":   {9, 5, 3},
		"RL":  {8, 4, 2},
		"RLL": {9, 4, 1},
		"RLR": {8, 1, 5},
		"RR":  {9, 6, 7},
		"RRL": {8, 7, 6},
		"RRR": {9, 7, 8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree shape mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 15, tree.Size())
	assert.Equal(t, 4, tree.Height())
	require.NoError(t, tree.Validate())
}

func TestBuild_GoldenDepthTags(t *testing.T) {
	tree := mustTree(t, 3, goldenPoints())

	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil {
			return
		}
		if n.Depth() != depth {
			t.Errorf("node %v: depth %d, want %d", n.Point(), n.Depth(), depth)
		}
		walk(n.Left(), depth+1)
		walk(n.Right(), depth+1)
	}
	walk(tree.Root(), 0)
}

func TestBuild_SinglePoint(t *testing.T) {
	tree := mustTree(t, 3, []Point{NewPoint(1, 2, 3, 0)})

	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, []float64{1, 2, 3}, root.Point().Coords)
	assert.True(t, root.IsLeaf())
}

func TestBuild_TwoPoints(t *testing.T) {
	tree := mustTree(t, 3, []Point{NewPoint(7, 2, 6, 0), NewPoint(5, 4, 2, 0)})

	root := tree.Root()
	assert.Equal(t, []float64{5, 4, 2}, root.Point().Coords, "root is the first in x order")
	assert.Nil(t, root.Left())
	require.NotNil(t, root.Right())
	assert.Equal(t, []float64{7, 2, 6}, root.Right().Point().Coords)
	assert.Equal(t, 1, root.Right().Depth())
}

func TestBuild_ThreePointsMedianRoot(t *testing.T) {
	tree := mustTree(t, 3, []Point{
		NewPoint(9, 6, 7, 0),
		NewPoint(1, 2, 3, 0),
		NewPoint(5, 4, 2, 0),
	})

	root := tree.Root()
	assert.Equal(t, 5.0, root.Point().Coords[0])
	assert.Equal(t, 1.0, root.Left().Point().Coords[0])
	assert.Equal(t, 9.0, root.Right().Point().Coords[0])
}

func TestBuild_DropsDuplicates(t *testing.T) {
	tree := mustTree(t, 3, []Point{NewPoint(5, 4, 2, 0), NewPoint(5, 4, 2, 0)})

	assert.Equal(t, 1, tree.Size())
	assert.True(t, tree.Root().IsLeaf())
}

func TestBuild_DuplicateLocationDifferentStrength(t *testing.T) {
	tree := mustTree(t, 3, []Point{NewPoint(5, 4, 2, 0.1), NewPoint(5, 4, 2, 0.9)})

	assert.Equal(t, 1, tree.Size())
	assert.True(t, tree.Contains(NewPoint(5, 4, 2, 0.1)), "first occurrence in sorted order is kept")
}

func TestBuild_Empty(t *testing.T) {
	tree := mustTree(t, 3, goldenPoints())
	require.NoError(t, tree.Build(nil))

	assert.Nil(t, tree.Root())
	assert.Equal(t, 0, tree.Size())
}

func TestBuild_ReplacesContent(t *testing.T) {
	tree := mustTree(t, 3, goldenPoints())
	require.NoError(t, tree.Build([]Point{NewPoint(0, 0, 0, 0)}))

	assert.Equal(t, 1, tree.Size())
	assert.False(t, tree.Contains(NewPoint(7, 2, 6, 0)))
}

func TestBuild_DimensionMismatch(t *testing.T) {
	tree := mustTree(t, 3, goldenPoints())

	err := tree.Build([]Point{NewPoint(1, 2, 3, 0), {Coords: []float64{1, 2}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, 15, tree.Size(), "failed build leaves the tree unchanged")
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	pts := goldenPoints()
	orig := make([]Point, len(pts))
	for i := range pts {
		orig[i] = pts[i].Clone()
	}

	tree := mustTree(t, 3, pts)
	if diff := cmp.Diff(orig, pts); diff != "" {
		t.Fatalf("input reordered or modified (-want +got):\n%s", diff)
	}

	// Storage is not shared with the caller.
	pts[5].Coords[0] = 100
	assert.True(t, tree.Contains(NewPoint(7, 2, 6, 0)))
}

func TestNew_InvalidDimensions(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestBuild_SizeEqualsDistinctCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, tc := range []struct {
		name string
		n    int
		k    int
		grid int
	}{
		{"continuous 3d", 500, 3, 0},
		{"grid 3d heavy ties", 800, 3, 6},
		{"grid 2d", 300, 2, 10},
		{"1d", 200, 1, 50},
		{"4d", 400, 4, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pts := randomPoints(rng, tc.n, tc.k, tc.grid)
			tree := mustTree(t, tc.k, pts)

			assert.Equal(t, distinctLocations(pts), tree.Size())
			require.NoError(t, tree.Validate())
			for _, p := range pts {
				if !tree.Contains(p) {
					t.Fatalf("built tree does not contain %v", p)
				}
			}
		})
	}
}

func TestBuild_MinimalHeight(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{1, 2, 3, 4, 7, 8, 15, 16, 100, 1023, 1024} {
		tree := mustTree(t, 3, randomPoints(rng, n, 3, 0))
		want := int(math.Ceil(math.Log2(float64(n + 1))))
		if got := tree.Height(); got != want {
			t.Errorf("n=%d: height %d, want %d", n, got, want)
		}
	}
}

func TestDedupSorted_OrderViolation(t *testing.T) {
	a := NewPoint(2, 0, 0, 0)
	b := NewPoint(1, 0, 0, 0)
	_, err := dedupSorted([]*Point{&a, &b}, 0, 3)
	assert.ErrorIs(t, err, ErrOrderViolation)
}

func TestMergeSort_SuperkeyOrder(t *testing.T) {
	pts := goldenPoints()
	refs := make([]*Point, len(pts))
	for i := range pts {
		refs[i] = &pts[i]
	}
	mergeSort(refs, make([]*Point, len(refs)), 0, len(refs)-1, 1, 3)

	got := make([][]float64, len(refs))
	for i, r := range refs {
		got[i] = r.Coords
	}
	want := [][]float64{
		{2, 1, 3}, {8, 1, 5}, {7, 2, 6}, {6, 3, 1}, {2, 3, 3},
		{9, 4, 1}, {5, 4, 2}, {8, 4, 2}, {3, 4, 5}, {9, 5, 3},
		{9, 6, 7}, {1, 6, 8}, {8, 7, 6}, {9, 7, 8}, {4, 7, 9},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("yzx ordering mismatch (-want +got):\n%s", diff)
	}
}
