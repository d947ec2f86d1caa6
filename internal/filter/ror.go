package filter

import (
	"errors"
	"math"

	"github.com/banshee-data/pointcloud/internal/kdtree"
)

// ROR is radius outlier removal: a point survives when at least
// MinNeighbors other points lie within Radius of it.
type ROR struct {
	Radius       float64
	MinNeighbors int
}

func (f *ROR) Name() string { return "ror" }

func (f *ROR) validate() error {
	if f.Radius <= 0 {
		return errors.New("radius must be positive")
	}
	if f.MinNeighbors < 1 {
		return errors.New("min_neighbors must be at least 1")
	}
	return nil
}

func (f *ROR) Apply(tree *kdtree.Tree, pts []kdtree.Point) Result {
	return partition(pts, func(p kdtree.Point) bool {
		return neighbors(tree, p, f.Radius) >= f.MinNeighbors
	})
}

// DROR is dynamic radius outlier removal. The search radius grows with the
// point's planar range from the sensor, tracking the spacing between
// neighbouring beams:
//
//	radius = max(MinRadius, Multiplier · range · AngularRes)
type DROR struct {
	MinRadius     float64
	Multiplier    float64
	AngularResDeg float64
	MinNeighbors  int
}

func (f *DROR) Name() string { return "dror" }

func (f *DROR) validate() error {
	if f.MinRadius <= 0 {
		return errors.New("min_radius must be positive")
	}
	if f.Multiplier < 0 || f.AngularResDeg < 0 {
		return errors.New("multiplier and angular_res_deg must not be negative")
	}
	if f.MinNeighbors < 1 {
		return errors.New("min_neighbors must be at least 1")
	}
	return nil
}

// SearchRadius returns the radius used for p.
func (f *DROR) SearchRadius(p kdtree.Point) float64 {
	var rng float64
	if len(p.Coords) >= 2 {
		rng = math.Hypot(p.Coords[0], p.Coords[1])
	}
	return math.Max(f.MinRadius, f.Multiplier*rng*f.AngularResDeg*math.Pi/180)
}

func (f *DROR) Apply(tree *kdtree.Tree, pts []kdtree.Point) Result {
	return partition(pts, func(p kdtree.Point) bool {
		return neighbors(tree, p, f.SearchRadius(p)) >= f.MinNeighbors
	})
}
