package filter

import (
	"errors"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"gonum.org/v1/gonum/stat"
)

// SOR is statistical outlier removal. Each point's mean distance to its K
// nearest neighbours is computed; points whose mean exceeds the global mean
// of those values by more than StdDevMul standard deviations are removed.
type SOR struct {
	K         int
	StdDevMul float64
}

func (f *SOR) Name() string { return "sor" }

func (f *SOR) validate() error {
	if f.K < 1 {
		return errors.New("k must be at least 1")
	}
	if f.StdDevMul < 0 {
		return errors.New("stddev_mul must not be negative")
	}
	return nil
}

// MeanDistances returns, for each point, the mean distance to its K nearest
// other points in tree. A point with no neighbours gets 0.
func (f *SOR) MeanDistances(tree *kdtree.Tree, pts []kdtree.Point) []float64 {
	means := make([]float64, len(pts))
	for i, p := range pts {
		nn := tree.KNearest(p, f.K+1)
		var sum float64
		n := 0
		for _, q := range nn {
			if q.SameLocation(p) {
				continue
			}
			if n == f.K {
				break
			}
			sum += q.Distance(p)
			n++
		}
		if n > 0 {
			means[i] = sum / float64(n)
		}
	}
	return means
}

func (f *SOR) Apply(tree *kdtree.Tree, pts []kdtree.Point) Result {
	if len(pts) < 2 {
		return Result{Kept: pts}
	}
	means := f.MeanDistances(tree, pts)
	mu, sigma := stat.MeanStdDev(means, nil)
	threshold := mu + f.StdDevMul*sigma

	var r Result
	for i, p := range pts {
		if means[i] > threshold {
			r.Removed = append(r.Removed, p)
		} else {
			r.Kept = append(r.Kept, p)
		}
	}
	return r
}
