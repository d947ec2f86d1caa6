package filter

import (
	"math"
	"testing"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grid returns an n×n planar grid of points with the given spacing,
// starting at (x0, y0).
func grid(n int, spacing, x0, y0 float64) []kdtree.Point {
	var pts []kdtree.Point
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pts = append(pts, kdtree.NewPoint(x0+float64(i)*spacing, y0+float64(j)*spacing, 0, 1))
		}
	}
	return pts
}

func index(t *testing.T, pts []kdtree.Point) *kdtree.Tree {
	t.Helper()
	tree, err := kdtree.NewFromPoints(3, pts)
	require.NoError(t, err)
	return tree
}

func TestROR_RemovesIsolatedPoint(t *testing.T) {
	outlier := kdtree.NewPoint(5, 5, 0, 1)
	pts := append(grid(3, 0.1, 0, 0), outlier)

	f, err := New("ror", Params{Radius: 0.15, MinNeighbors: 2})
	require.NoError(t, err)
	res := f.Apply(index(t, pts), pts)

	assert.Len(t, res.Kept, 9)
	require.Len(t, res.Removed, 1)
	assert.True(t, res.Removed[0].Equal(outlier))
}

func TestROR_SelfIsNotANeighbour(t *testing.T) {
	pts := []kdtree.Point{kdtree.NewPoint(0, 0, 0, 1), kdtree.NewPoint(0.05, 0, 0, 1)}
	f := &ROR{Radius: 0.1, MinNeighbors: 1}

	res := f.Apply(index(t, pts), pts)
	assert.Len(t, res.Kept, 2)

	f.MinNeighbors = 2
	res = f.Apply(index(t, pts), pts)
	assert.Len(t, res.Removed, 2)
}

func TestDROR_SearchRadius(t *testing.T) {
	f := &DROR{MinRadius: 0.1, Multiplier: 3, AngularResDeg: 1, MinNeighbors: 1}

	assert.InDelta(t, 3*10*math.Pi/180, f.SearchRadius(kdtree.NewPoint(10, 0, 0, 0)), 1e-12)
	assert.InDelta(t, 3*10*math.Pi/180, f.SearchRadius(kdtree.NewPoint(6, 8, 5, 0)), 1e-12, "range ignores z")
	assert.Equal(t, 0.1, f.SearchRadius(kdtree.NewPoint(0.1, 0, 0, 0)))
}

func TestDROR_KeepsSparseDistantReturns(t *testing.T) {
	far := grid(3, 0.4, 20, 0)
	near := kdtree.NewPoint(1, 1, 0, 1)
	pts := append(append([]kdtree.Point{}, far...), near)
	tree := index(t, pts)

	ror := &ROR{Radius: 0.15, MinNeighbors: 2}
	assert.Len(t, ror.Apply(tree, pts).Kept, 0, "fixed radius rejects the sparse cluster")

	dror := &DROR{MinRadius: 0.15, Multiplier: 2, AngularResDeg: 1, MinNeighbors: 2}
	res := dror.Apply(tree, pts)
	assert.Len(t, res.Kept, 9)
	require.Len(t, res.Removed, 1)
	assert.True(t, res.Removed[0].Equal(near))
}

func TestSOR_RemovesDistantPoint(t *testing.T) {
	outlier := kdtree.NewPoint(50, 50, 0, 1)
	pts := append(grid(5, 1, 0, 0), outlier)

	f, err := New("SOR", Params{K: 4, StdDevMul: 1})
	require.NoError(t, err)
	res := f.Apply(index(t, pts), pts)

	assert.Len(t, res.Kept, 25)
	require.Len(t, res.Removed, 1)
	assert.True(t, res.Removed[0].Equal(outlier))
}

func TestSOR_MeanDistances(t *testing.T) {
	pts := []kdtree.Point{
		kdtree.NewPoint(0, 0, 0, 0),
		kdtree.NewPoint(1, 0, 0, 0),
		kdtree.NewPoint(3, 0, 0, 0),
	}
	f := &SOR{K: 1}
	assert.Equal(t, []float64{1, 1, 2}, f.MeanDistances(index(t, pts), pts))

	f.K = 5
	assert.Equal(t, []float64{2, 1.5, 2.5}, f.MeanDistances(index(t, pts), pts))
}

func TestSOR_TinyInput(t *testing.T) {
	pts := []kdtree.Point{kdtree.NewPoint(0, 0, 0, 0)}
	res := (&SOR{K: 3, StdDevMul: 1}).Apply(index(t, pts), pts)
	assert.Len(t, res.Kept, 1)
	assert.Empty(t, res.Removed)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"ror", Params{Radius: 1, MinNeighbors: 1}, false},
		{"ror", Params{Radius: 0, MinNeighbors: 1}, true},
		{"ror", Params{Radius: 1}, true},
		{"dror", Params{MinRadius: 0.1, Multiplier: 3, AngularResDeg: 0.5, MinNeighbors: 3}, false},
		{"dror", Params{MinNeighbors: 3}, true},
		{"dror", Params{MinRadius: 0.1, Multiplier: -1, MinNeighbors: 3}, true},
		{"sor", Params{K: 8, StdDevMul: 1}, false},
		{"sor", Params{K: 0}, true},
		{"sor", Params{K: 1, StdDevMul: -1}, true},
	}
	for _, tt := range tests {
		_, err := New(tt.name, tt.params)
		if tt.wantErr {
			assert.Error(t, err, "%s %+v", tt.name, tt.params)
		} else {
			assert.NoError(t, err, "%s %+v", tt.name, tt.params)
		}
	}

	_, err := New("median", Params{})
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestChain_RunsStagesInOrder(t *testing.T) {
	isolated := kdtree.NewPoint(5, 5, 0, 1)
	pts := append(grid(5, 0.1, 0, 0), isolated)

	chain := NewChain(3,
		&ROR{Radius: 0.15, MinNeighbors: 2},
		&SOR{K: 4, StdDevMul: 3},
	)
	require.Equal(t, 2, chain.Len())

	res, stages, err := chain.Run(nil, pts)
	require.NoError(t, err)

	assert.Len(t, res.Kept, 25)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, []StageResult{
		{Name: "ror", In: 26, Removed: 1},
		{Name: "sor", In: 25, Removed: 0},
	}, stages)
}

func TestChain_ReusesSuppliedIndex(t *testing.T) {
	pts := grid(3, 0.1, 0, 0)
	res, stages, err := NewChain(3, &ROR{Radius: 0.15, MinNeighbors: 2}).Run(index(t, pts), pts)
	require.NoError(t, err)
	assert.Len(t, res.Kept, 9)
	assert.Len(t, stages, 1)
}

func TestChain_Empty(t *testing.T) {
	pts := grid(2, 1, 0, 0)
	res, stages, err := NewChain(3).Run(nil, pts)
	require.NoError(t, err)
	assert.Equal(t, pts, res.Kept)
	assert.Empty(t, stages)
}
