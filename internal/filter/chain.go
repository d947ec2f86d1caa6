package filter

import (
	"fmt"

	"github.com/banshee-data/pointcloud/internal/kdtree"
)

// StageResult records what one filter of a chain removed.
type StageResult struct {
	Name    string
	In      int
	Removed int
}

// Chain runs filters in order, re-indexing the survivors between stages.
type Chain struct {
	k       int
	filters []Filter
}

// NewChain returns a chain over k-dimensional points.
func NewChain(k int, filters ...Filter) *Chain {
	return &Chain{k: k, filters: filters}
}

// Len returns the number of stages.
func (c *Chain) Len() int { return len(c.filters) }

// Run filters pts. tree may hold the already indexed pts and is reused for
// the first stage; pass nil to have it built. The returned Removed holds
// the points dropped by every stage, in stage order.
func (c *Chain) Run(tree *kdtree.Tree, pts []kdtree.Point) (Result, []StageResult, error) {
	res := Result{Kept: pts}
	stages := make([]StageResult, 0, len(c.filters))

	for i, f := range c.filters {
		if i > 0 || tree == nil {
			var err error
			tree, err = kdtree.NewFromPoints(c.k, res.Kept)
			if err != nil {
				return Result{}, nil, fmt.Errorf("index for %s: %w", f.Name(), err)
			}
		}
		in := len(res.Kept)
		out := f.Apply(tree, res.Kept)
		res.Kept = out.Kept
		res.Removed = append(res.Removed, out.Removed...)
		stages = append(stages, StageResult{Name: f.Name(), In: in, Removed: len(out.Removed)})
	}
	return res, stages, nil
}
