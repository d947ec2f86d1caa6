package source

import (
	"context"
	"fmt"
	"log"

	"github.com/banshee-data/pointcloud/internal/scanlog"
)

// LogSource replays a session recorded in a scan log.
type LogSource struct {
	store     *scanlog.Store
	sessionID string

	recs    []scanlog.Record
	next    int
	started bool
}

// NewLogSource returns a replay source for one recorded session.
func NewLogSource(store *scanlog.Store, sessionID string) *LogSource {
	return &LogSource{store: store, sessionID: sessionID}
}

// Start loads the session's packets.
func (s *LogSource) Start(ctx context.Context) error {
	recs, err := s.store.Packets(ctx, s.sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", s.sessionID, err)
	}
	s.recs, s.next, s.started = recs, 0, true
	log.Printf("log source replaying %d packets from session %s", len(recs), s.sessionID)
	return nil
}

func (s *LogSource) HasNext() bool {
	return s.started && s.next < len(s.recs)
}

func (s *LogSource) Next() (Packet, error) {
	if !s.started {
		return Packet{}, ErrNotStarted
	}
	if s.next >= len(s.recs) {
		return Packet{}, ErrNoData
	}
	r := s.recs[s.next]
	s.next++
	return Packet{AngleDeg: r.AngleDeg, Distance: r.Distance, Strength: r.Strength, Time: r.Time}, nil
}

func (s *LogSource) Done() bool {
	return s.started && s.next >= len(s.recs)
}

func (s *LogSource) Close() error {
	s.recs = nil
	return nil
}
