package kdtree

import (
	"math/rand"
	"strconv"
	"testing"
)

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{1_000, 100_000} {
		pts := randomPoints(rand.New(rand.NewSource(1)), n, 3, 0)
		b.Run("n="+strconv.Itoa(n), func(b *testing.B) {
			tree, _ := New(3)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := tree.Build(pts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkInsert(b *testing.B) {
	pts := randomPoints(rand.New(rand.NewSource(1)), 100_000, 3, 0)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tree, _ := New(3)
		for _, p := range pts {
			_ = tree.Insert(p)
		}
	}
}

func BenchmarkRadiusSearch(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	tree, _ := NewFromPoints(3, randomPoints(rng, 100_000, 3, 0))
	targets := randomPoints(rng, 1024, 3, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.RadiusSearch(targets[i%len(targets)], 0.02)
	}
}

func BenchmarkNearestNeighbor(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	tree, _ := NewFromPoints(3, randomPoints(rng, 100_000, 3, 0))
	targets := randomPoints(rng, 1024, 3, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.NearestNeighbor(targets[i%len(targets)])
	}
}
