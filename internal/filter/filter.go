// Package filter removes outliers from a point cloud using proximity
// queries against a kdtree index of the same points.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/pointcloud/internal/kdtree"
)

// ErrUnknownFilter is returned by New for an unrecognised filter name.
var ErrUnknownFilter = errors.New("filter: unknown filter")

// Result partitions the input of a filter.
type Result struct {
	Kept    []kdtree.Point
	Removed []kdtree.Point
}

// Filter classifies each point of pts, which must be the content of tree.
type Filter interface {
	Name() string
	Apply(tree *kdtree.Tree, pts []kdtree.Point) Result
}

// Params holds the parameters of every filter kind; each kind reads the
// fields it needs.
type Params struct {
	Radius       float64 `json:"radius,omitempty"`
	MinNeighbors int     `json:"min_neighbors,omitempty"`

	MinRadius     float64 `json:"min_radius,omitempty"`
	Multiplier    float64 `json:"multiplier,omitempty"`
	AngularResDeg float64 `json:"angular_res_deg,omitempty"`

	K         int     `json:"k,omitempty"`
	StdDevMul float64 `json:"stddev_mul,omitempty"`
}

// New constructs the filter called name ("ror", "dror" or "sor").
func New(name string, p Params) (Filter, error) {
	var f Filter
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ror":
		f = &ROR{Radius: p.Radius, MinNeighbors: p.MinNeighbors}
	case "dror":
		f = &DROR{MinRadius: p.MinRadius, Multiplier: p.Multiplier, AngularResDeg: p.AngularResDeg, MinNeighbors: p.MinNeighbors}
	case "sor":
		f = &SOR{K: p.K, StdDevMul: p.StdDevMul}
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownFilter)
	}
	if v, ok := f.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
	}
	return f, nil
}

// neighbors counts the points of tree within radius of p, excluding p.
func neighbors(tree *kdtree.Tree, p kdtree.Point, radius float64) int {
	n := tree.CountWithin(p, radius)
	if tree.Contains(p) {
		n--
	}
	return n
}

// partition applies keep to each point.
func partition(pts []kdtree.Point, keep func(kdtree.Point) bool) Result {
	var r Result
	for _, p := range pts {
		if keep(p) {
			r.Kept = append(r.Kept, p)
		} else {
			r.Removed = append(r.Removed, p)
		}
	}
	return r
}
