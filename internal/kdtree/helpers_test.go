package kdtree

import (
	"math/rand"
	"sort"
	"testing"
)

func goldenPoints() []Point {
	coords := [][3]float64{
		{2, 3, 3}, {5, 4, 2}, {9, 6, 7}, {4, 7, 9}, {8, 1, 5},
		{7, 2, 6}, {9, 4, 1}, {8, 4, 2}, {9, 7, 8}, {6, 3, 1},
		{3, 4, 5}, {1, 6, 8}, {9, 5, 3}, {2, 1, 3}, {8, 7, 6},
	}
	pts := make([]Point, len(coords))
	for i, c := range coords {
		pts[i] = NewPoint(c[0], c[1], c[2], 0)
	}
	return pts
}

// randomPoints draws n points with coordinates on a coarse integer grid when
// grid > 0 (forcing ties on every axis) or uniformly in [0, 1) otherwise.
func randomPoints(rng *rand.Rand, n, k, grid int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		c := make([]float64, k)
		for j := range c {
			if grid > 0 {
				c[j] = float64(rng.Intn(grid))
			} else {
				c[j] = rng.Float64()
			}
		}
		pts[i] = Point{Coords: c}
	}
	return pts
}

func distinctLocations(pts []Point) int {
	seen := make(map[string]struct{}, len(pts))
	for _, p := range pts {
		seen[Point{Coords: p.Coords}.String()] = struct{}{}
	}
	return len(seen)
}

func bruteRadius(pts []Point, target Point, tol float64) []Point {
	var out []Point
	for _, p := range pts {
		if p.Distance(target) <= tol {
			out = append(out, p)
		}
	}
	return out
}

func bruteNearestDist(pts []Point, target Point) float64 {
	best := -1.0
	for _, p := range pts {
		if d := p.Distance(target); best < 0 || d < best {
			best = d
		}
	}
	return best
}

// sortPoints orders points by coordinates so result sets can be compared.
func sortPoints(pts []Point) []Point {
	out := append([]Point(nil), pts...)
	sort.Slice(out, func(i, j int) bool {
		return superKeyCompare(out[i].Coords, out[j].Coords, 0, len(out[i].Coords)) < 0
	})
	return out
}

func mustTree(t *testing.T, k int, pts []Point) *Tree {
	t.Helper()
	tree, err := NewFromPoints(k, pts)
	if err != nil {
		t.Fatalf("NewFromPoints: %v", err)
	}
	return tree
}
