package source

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Obstacle is a static axis-aligned rectangle centred at (X, Y), in metres
// relative to the sensor.
type Obstacle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SimConfig configures the simulated scanner. Zero geometry and scan fields
// take the defaults from DefaultSimConfig; zero noise and spawn probability
// mean none.
type SimConfig struct {
	MinAngle       float64 // degrees
	MaxAngle       float64 // degrees
	AngleIncrement float64 // degrees per packet
	RoomWidth      float64 // metres
	RoomHeight     float64 // metres
	NoiseStdDev    float64 // metres of Gaussian range noise
	MaxScans       int     // sweeps before the source is done; <0 runs forever
	Obstacles      []Obstacle

	ClusterSpawnProb float64 // chance per sweep of spawning a transient cluster
	ClusterMaxWidth  float64 // degrees
	ClusterMaxScans  int     // lifetime upper bound in sweeps

	PacketsPerSecond float64 // 0 emits as fast as polled
	Seed             int64   // 0 seeds from the clock
}

// DefaultSimConfig returns a 10 m square room scanned over ±160°.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		MinAngle:         -160,
		MaxAngle:         160,
		AngleIncrement:   0.5,
		RoomWidth:        10,
		RoomHeight:       10,
		NoiseStdDev:      0.02,
		MaxScans:         50,
		ClusterSpawnProb: 0.1,
		ClusterMaxWidth:  10,
		ClusterMaxScans:  5,
	}
}

func (c SimConfig) withDefaults() SimConfig {
	d := DefaultSimConfig()
	if c.MinAngle == 0 && c.MaxAngle == 0 {
		c.MinAngle, c.MaxAngle = d.MinAngle, d.MaxAngle
	}
	if c.AngleIncrement <= 0 {
		c.AngleIncrement = d.AngleIncrement
	}
	if c.RoomWidth <= 0 {
		c.RoomWidth = d.RoomWidth
	}
	if c.RoomHeight <= 0 {
		c.RoomHeight = d.RoomHeight
	}
	if c.NoiseStdDev < 0 {
		c.NoiseStdDev = 0
	}
	if c.MaxScans == 0 {
		c.MaxScans = d.MaxScans
	}
	if c.ClusterMaxWidth <= 0 {
		c.ClusterMaxWidth = d.ClusterMaxWidth
	}
	if c.ClusterMaxScans <= 0 {
		c.ClusterMaxScans = d.ClusterMaxScans
	}
	return c
}

// cluster is a short-lived obstacle covering an angular span.
type cluster struct {
	startAngle, endAngle float64
	baseDistance         float64
	noiseStdDev          float64
	scansRemaining       int
}

// SimSource sweeps a virtual beam back and forth across a rectangular room
// with the sensor at its centre. Each reversal completes one scan.
type SimSource struct {
	cfg         SimConfig
	maxDistance float64
	steps       int

	rng     *rand.Rand
	limiter *rate.Limiter

	started  bool
	index    int
	forward  bool
	scans    int
	clusters []cluster
}

// NewSimSource returns a simulator for cfg.
func NewSimSource(cfg SimConfig) *SimSource {
	cfg = cfg.withDefaults()
	if cfg.MaxAngle < cfg.MinAngle {
		cfg.MinAngle, cfg.MaxAngle = cfg.MaxAngle, cfg.MinAngle
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &SimSource{
		cfg:         cfg,
		maxDistance: math.Hypot(cfg.RoomWidth/2, cfg.RoomHeight/2),
		steps:       int(math.Floor((cfg.MaxAngle-cfg.MinAngle)/cfg.AngleIncrement + 1e-9)),
		rng:         rand.New(rand.NewSource(seed)),
		forward:     true,
	}
	if cfg.PacketsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.PacketsPerSecond), 1)
	}
	return s
}

// AddObstacle places a static rectangle in the room.
func (s *SimSource) AddObstacle(o Obstacle) {
	s.cfg.Obstacles = append(s.cfg.Obstacles, o)
}

// Start resets the sweep to the minimum angle.
func (s *SimSource) Start(ctx context.Context) error {
	if s.steps < 1 {
		return errors.New("simulated scan range holds fewer than two beam positions")
	}
	s.started = true
	s.index, s.forward, s.scans = 0, true, 0
	s.clusters = nil
	log.Printf("simulated source: %.0fx%.0f m room, %.1f° to %.1f° in %.2f° steps, %d obstacles",
		s.cfg.RoomWidth, s.cfg.RoomHeight, s.cfg.MinAngle, s.cfg.MaxAngle, s.cfg.AngleIncrement, len(s.cfg.Obstacles))
	return nil
}

// HasNext reports whether a packet is ready, honouring the configured rate.
func (s *SimSource) HasNext() bool {
	if !s.started || s.Done() {
		return false
	}
	return s.limiter == nil || s.limiter.Tokens() >= 1
}

// Next measures the range at the current beam angle and advances the beam.
func (s *SimSource) Next() (Packet, error) {
	if !s.started {
		return Packet{}, ErrNotStarted
	}
	if s.Done() {
		return Packet{}, ErrNoData
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return Packet{}, ErrNoData
	}

	angle := s.cfg.MinAngle + float64(s.index)*s.cfg.AngleIncrement
	dist := s.distance(angle)
	pkt := Packet{
		AngleDeg: angle,
		Distance: dist,
		Strength: s.strength(dist),
		Time:     time.Now(),
	}
	s.advance()
	return pkt, nil
}

// Done reports whether MaxScans sweeps have completed.
func (s *SimSource) Done() bool {
	return s.cfg.MaxScans > 0 && s.scans >= s.cfg.MaxScans
}

// Scans returns the number of completed sweeps.
func (s *SimSource) Scans() int {
	return s.scans
}

func (s *SimSource) Close() error {
	return nil
}

// advance moves the beam one step, reversing at either end of the range.
// The end position is emitted once; the return sweep starts one step in.
func (s *SimSource) advance() {
	if s.forward {
		if s.index < s.steps {
			s.index++
			return
		}
		s.forward = false
		s.index--
	} else {
		if s.index > 0 {
			s.index--
			return
		}
		s.forward = true
		s.index++
	}
	s.scans++
	s.updateClusters()
}

// updateClusters ages active clusters, drops expired ones and may spawn a
// new one.
func (s *SimSource) updateClusters() {
	live := s.clusters[:0]
	for _, c := range s.clusters {
		c.scansRemaining--
		if c.scansRemaining > 0 {
			live = append(live, c)
		}
	}
	s.clusters = live

	if s.rng.Float64() < s.cfg.ClusterSpawnProb {
		s.spawnCluster()
	}
}

func (s *SimSource) spawnCluster() {
	width := 1 + s.rng.Float64()*(s.cfg.ClusterMaxWidth-1)
	start := s.cfg.MinAngle + s.rng.Float64()*(s.cfg.MaxAngle-s.cfg.MinAngle-width)
	s.clusters = append(s.clusters, cluster{
		startAngle:     start,
		endAngle:       start + width,
		baseDistance:   (0.2 + 0.6*s.rng.Float64()) * s.maxDistance,
		noiseStdDev:    0.05,
		scansRemaining: 1 + s.rng.Intn(s.cfg.ClusterMaxScans),
	})
}

// distance traces a ray from the origin at angleDeg and returns the nearest
// hit among walls, obstacles and active clusters, plus range noise.
func (s *SimSource) distance(angleDeg float64) float64 {
	rad := angleDeg * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)

	best := s.wallDistance(dx, dy)
	for _, o := range s.cfg.Obstacles {
		if d, ok := rayBox(dx, dy, o.X-o.Width/2, o.Y-o.Height/2, o.X+o.Width/2, o.Y+o.Height/2); ok && d < best {
			best = d
		}
	}
	for _, c := range s.clusters {
		if angleDeg >= c.startAngle && angleDeg <= c.endAngle {
			if d := c.baseDistance + s.rng.NormFloat64()*c.noiseStdDev; d < best {
				best = d
			}
		}
	}

	best += s.rng.NormFloat64() * s.cfg.NoiseStdDev
	return math.Max(best, 0)
}

// wallDistance is the exit distance of a ray from the room's interior.
func (s *SimSource) wallDistance(dx, dy float64) float64 {
	halfW, halfH := s.cfg.RoomWidth/2, s.cfg.RoomHeight/2
	best := math.Inf(1)
	if dx != 0 {
		best = math.Min(best, halfW/math.Abs(dx))
	}
	if dy != 0 {
		best = math.Min(best, halfH/math.Abs(dy))
	}
	return best
}

// rayBox intersects a ray from the origin with an axis-aligned box using the
// slab method and returns the entry distance.
func rayBox(dx, dy, minX, minY, maxX, maxY float64) (float64, bool) {
	tmin, tmax := 0.0, math.Inf(1)
	for _, slab := range [2][3]float64{{dx, minX, maxX}, {dy, minY, maxY}} {
		dir, lo, hi := slab[0], slab[1], slab[2]
		if dir == 0 {
			if lo > 0 || hi < 0 {
				return 0, false
			}
			continue
		}
		t1, t2 := lo/dir, hi/dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// strength falls off linearly from 1 at the sensor to 0 at the room corner.
func (s *SimSource) strength(dist float64) float64 {
	return math.Max(0, math.Min(1, 1-dist/s.maxDistance))
}
