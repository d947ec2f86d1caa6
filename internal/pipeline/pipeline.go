// Package pipeline turns a packet source into filtered point-cloud frames:
// packets are grouped into frames, each frame is indexed in a kdtree, run
// through the outlier filter chain and handed to the sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/pointcloud/internal/filter"
	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/banshee-data/pointcloud/internal/scanlog"
	"github.com/banshee-data/pointcloud/internal/source"
	"golang.org/x/sync/errgroup"
)

// Dims is the dimensionality of the points the pipeline indexes.
const Dims = 3

// Frame is one processed group of packets.
type Frame struct {
	Seq        int
	Start, End time.Time
	Packets    int
	Duplicates int // packets that mapped onto an already present location
	Invalid    int // packets dropped by source.Packet.Validate
	Kept       []kdtree.Point
	Removed    []kdtree.Point
	Stages     []filter.StageResult
}

// Sink consumes processed frames. HandleFrame is called from a single
// goroutine; a returned error stops the pipeline.
type Sink interface {
	HandleFrame(ctx context.Context, f *Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f *Frame) error

func (fn SinkFunc) HandleFrame(ctx context.Context, f *Frame) error {
	return fn(ctx, f)
}

// Options configures a Pipeline.
type Options struct {
	PacketsPerFrame int
	CutOnReversal   bool
	PollInterval    time.Duration
	StatsInterval   time.Duration
	Filters         []filter.Filter

	// Recorder, when set, receives every packet under a new session.
	Recorder   *scanlog.Store
	SourceKind string
}

// Stats are cumulative pipeline counters.
type Stats struct {
	Frames     int64     `json:"frames"`
	Packets    int64     `json:"packets"`
	Points     int64     `json:"points"`
	Duplicates int64     `json:"duplicates"`
	Removed    int64     `json:"removed"`
	Invalid    int64     `json:"invalid"`
	QueueDrops uint64    `json:"queue_drops"`
	Session    string    `json:"session,omitempty"`
	LastFrame  time.Time `json:"last_frame"`
}

// Pipeline wires a Poller to the filter chain and sinks.
type Pipeline struct {
	opts   Options
	poller *source.Poller
	chain  *filter.Chain
	sinks  []Sink
	framer framer

	mu    sync.Mutex
	stats Stats
	seq   int
}

// New returns a pipeline reading from poller. The poller's source must be
// set; Run starts it.
func New(poller *source.Poller, opts Options, sinks ...Sink) *Pipeline {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	return &Pipeline{
		opts:   opts,
		poller: poller,
		chain:  filter.NewChain(Dims, opts.Filters...),
		sinks:  sinks,
		framer: framer{perFrame: opts.PacketsPerFrame, cutOnReversal: opts.CutOnReversal},
	}
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.QueueDrops = p.poller.Dropped()
	return s
}

// Run starts the source and processes frames until the source is exhausted,
// ctx is cancelled or a sink fails. The final partial frame is processed on
// exhaustion. Cancellation through ctx is a clean stop and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.poller.Start(ctx); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	defer p.poller.Close()

	session, err := p.startRecording(ctx)
	if err != nil {
		return err
	}
	if session != "" {
		defer func() {
			if err := p.opts.Recorder.EndSession(context.Background(), session); err != nil {
				log.Printf("failed to end scan log session %s: %v", session, err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	consumed := make(chan struct{})

	g.Go(func() error {
		return p.poller.Run(gctx, p.opts.PollInterval)
	})
	g.Go(func() error {
		defer close(consumed)
		return p.consume(gctx, session)
	})
	if p.opts.StatsInterval > 0 {
		g.Go(func() error {
			p.logStats(gctx, consumed)
			return nil
		})
	}

	err = g.Wait()
	s := p.Stats()
	log.Printf("pipeline stopped: %d frames, %d packets, %d points kept, %d removed, %d duplicates, %d queue drops",
		s.Frames, s.Packets, s.Points-s.Removed, s.Removed, s.Duplicates, s.QueueDrops)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil
	}
	return err
}

func (p *Pipeline) startRecording(ctx context.Context) (string, error) {
	if p.opts.Recorder == nil {
		return "", nil
	}
	id, err := p.opts.Recorder.StartSession(ctx, p.opts.SourceKind, "")
	if err != nil {
		return "", fmt.Errorf("start recording: %w", err)
	}
	p.mu.Lock()
	p.stats.Session = id
	p.mu.Unlock()
	log.Printf("recording packets to scan log session %s", id)
	return id, nil
}

// consume drains the poller into frames until the source is done.
func (p *Pipeline) consume(ctx context.Context, session string) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		for {
			pkt, err := p.poller.Get()
			if errors.Is(err, source.ErrNoData) {
				break
			}
			if err != nil {
				return err
			}
			for _, frame := range p.framer.add(pkt) {
				if err := p.process(ctx, frame, session); err != nil {
					return err
				}
			}
		}

		if p.poller.Done() {
			if rest := p.framer.flush(); len(rest) > 0 {
				return p.process(ctx, rest, session)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// process indexes one frame's packets, filters them and feeds the sinks.
func (p *Pipeline) process(ctx context.Context, pkts []source.Packet, session string) error {
	if session != "" {
		recs := make([]scanlog.Record, len(pkts))
		for i, pkt := range pkts {
			recs[i] = pkt.Record()
		}
		if err := p.opts.Recorder.Append(ctx, session, recs...); err != nil {
			return fmt.Errorf("record frame: %w", err)
		}
	}

	frame, err := p.buildFrame(pkts)
	if err != nil {
		return err
	}
	for _, s := range p.sinks {
		if err := s.HandleFrame(ctx, frame); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) buildFrame(pkts []source.Packet) (*Frame, error) {
	pts := make([]kdtree.Point, 0, len(pkts))
	for _, pkt := range pkts {
		if pkt.Validate() != nil {
			continue
		}
		pts = append(pts, pkt.Point())
	}
	invalid := len(pkts) - len(pts)

	tree, err := kdtree.NewFromPoints(Dims, pts)
	if err != nil {
		return nil, fmt.Errorf("index frame: %w", err)
	}
	distinct := tree.Points()

	res, stages, err := p.chain.Run(tree, distinct)
	if err != nil {
		return nil, fmt.Errorf("filter frame: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	frame := &Frame{
		Seq:        p.seq,
		Start:      pkts[0].Time,
		End:        pkts[len(pkts)-1].Time,
		Packets:    len(pkts),
		Duplicates: len(pts) - tree.Size(),
		Invalid:    invalid,
		Kept:       res.Kept,
		Removed:    res.Removed,
		Stages:     stages,
	}
	p.seq++
	p.stats.Frames++
	p.stats.Packets += int64(frame.Packets)
	p.stats.Points += int64(tree.Size())
	p.stats.Duplicates += int64(frame.Duplicates)
	p.stats.Removed += int64(len(res.Removed))
	p.stats.Invalid += int64(invalid)
	p.stats.LastFrame = time.Now()
	return frame, nil
}

func (p *Pipeline) logStats(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(p.opts.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s := p.Stats()
			log.Printf("pipeline: %d frames, %d packets, %d points, %d removed, %d duplicates, %d queue drops",
				s.Frames, s.Packets, s.Points, s.Removed, s.Duplicates, s.QueueDrops)
		}
	}
}
