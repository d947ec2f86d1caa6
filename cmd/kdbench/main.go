// Command kdbench times kdtree construction, incremental insertion and the
// search operations on random point sets and checks the resulting trees.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/banshee-data/pointcloud/internal/version"
	"gonum.org/v1/gonum/stat"
)

var (
	showVersion = flag.Bool("version", false, "Print version and exit")
	numPoints   = flag.Int("n", 100000, "Number of points")
	dims        = flag.Int("k", 3, "Dimensions")
	numQueries  = flag.Int("queries", 1000, "Number of search queries")
	radius      = flag.Float64("radius", 0.05, "Radius for radius searches")
	neighbours  = flag.Int("knn", 8, "Neighbours for k-nearest queries")
	seed        = flag.Int64("seed", 1, "Random seed")
	extent      = flag.Float64("extent", 1, "Coordinates are drawn from [0, extent)")
)

func randomPoints(rng *rand.Rand, n, k int, extent float64) []kdtree.Point {
	pts := make([]kdtree.Point, n)
	for i := range pts {
		c := make([]float64, k)
		for d := range c {
			c[d] = rng.Float64() * extent
		}
		pts[i] = kdtree.Point{Coords: c, Strength: rng.Float64()}
	}
	return pts
}

type result struct {
	name    string
	elapsed time.Duration
	ops     int
	note    string
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("kdbench"))
		return
	}
	if *numPoints < 1 || *dims < 1 || *numQueries < 1 {
		log.Fatal("n, k and queries must be positive")
	}

	rng := rand.New(rand.NewSource(*seed))
	pts := randomPoints(rng, *numPoints, *dims, *extent)
	queries := randomPoints(rng, *numQueries, *dims, *extent)
	var results []result

	start := time.Now()
	built, err := kdtree.NewFromPoints(*dims, pts)
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	results = append(results, result{"build", time.Since(start), len(pts),
		fmt.Sprintf("size=%d height=%d", built.Size(), built.Height())})

	inserted, err := kdtree.New(*dims)
	if err != nil {
		log.Fatalf("new tree: %v", err)
	}
	start = time.Now()
	if _, err := inserted.InsertAll(pts); err != nil {
		log.Fatalf("insert failed: %v", err)
	}
	results = append(results, result{"insert", time.Since(start), len(pts),
		fmt.Sprintf("size=%d height=%d", inserted.Size(), inserted.Height())})

	for name, tr := range map[string]*kdtree.Tree{"built": built, "inserted": inserted} {
		if err := tr.Validate(); err != nil {
			log.Fatalf("%s tree invalid: %v", name, err)
		}
	}

	counts := make([]float64, len(queries))
	start = time.Now()
	for i, q := range queries {
		counts[i] = float64(len(built.RadiusSearch(q, *radius)))
	}
	mean, std := stat.MeanStdDev(counts, nil)
	results = append(results, result{"radius", time.Since(start), len(queries),
		fmt.Sprintf("hits mean=%.1f stddev=%.1f", mean, std)})

	start = time.Now()
	for _, q := range queries {
		built.NearestNeighbor(q)
	}
	results = append(results, result{"nearest", time.Since(start), len(queries), ""})

	start = time.Now()
	for _, q := range queries {
		built.KNearest(q, *neighbours)
	}
	results = append(results, result{"knearest", time.Since(start), len(queries), fmt.Sprintf("k=%d", *neighbours)})

	removed := 0
	start = time.Now()
	for _, p := range pts[:len(pts)/2] {
		if inserted.Remove(p) {
			removed++
		}
	}
	results = append(results, result{"remove", time.Since(start), len(pts) / 2,
		fmt.Sprintf("removed=%d size=%d", removed, inserted.Size())})
	if err := inserted.Validate(); err != nil {
		log.Fatalf("tree invalid after removals: %v", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tTOTAL\tPER OP\tNOTES")
	for _, r := range results {
		per := time.Duration(0)
		if r.ops > 0 {
			per = r.elapsed / time.Duration(r.ops)
		}
		fmt.Fprintf(tw, "%s\t%v\t%v\t%s\n", r.name, r.elapsed.Round(time.Microsecond), per, r.note)
	}
	tw.Flush()
}
