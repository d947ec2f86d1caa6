package source

import (
	"context"
	"time"
)

// sliceSource serves a fixed list of packets, optionally withholding them
// until release is called.
type sliceSource struct {
	pkts    []Packet
	next    int
	held    bool
	started bool
	closed  bool
	failAt  int // Next fails at this index when > 0
}

func newSliceSource(n int) *sliceSource {
	s := &sliceSource{}
	base := time.Unix(1700000000, 0)
	for i := 0; i < n; i++ {
		s.pkts = append(s.pkts, Packet{AngleDeg: float64(i), Distance: 1, Strength: 1, Time: base.Add(time.Duration(i) * time.Millisecond)})
	}
	return s
}

func (s *sliceSource) Start(ctx context.Context) error {
	s.started = true
	return nil
}

func (s *sliceSource) HasNext() bool {
	return s.started && !s.held && s.next < len(s.pkts)
}

func (s *sliceSource) Next() (Packet, error) {
	if !s.HasNext() {
		return Packet{}, ErrNoData
	}
	if s.failAt > 0 && s.next == s.failAt {
		return Packet{}, context.DeadlineExceeded
	}
	p := s.pkts[s.next]
	s.next++
	return p, nil
}

func (s *sliceSource) Done() bool {
	return s.started && s.next >= len(s.pkts)
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}
