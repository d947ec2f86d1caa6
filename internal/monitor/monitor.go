// Package monitor exposes the running pipeline on the tsweb debug page: a
// scatter chart of the latest frame, a PNG rendering of it and the pipeline
// counters.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/banshee-data/pointcloud/internal/pipeline"
	"tailscale.com/tsweb"
)

// StatsFunc reports the current pipeline counters.
type StatsFunc func() pipeline.Stats

// Monitor is a pipeline.Sink that keeps the most recent frame for display.
type Monitor struct {
	stats StatsFunc

	mu   sync.RWMutex
	last *pipeline.Frame
}

// New returns a Monitor. stats may be nil.
func New(stats StatsFunc) *Monitor {
	return &Monitor{stats: stats}
}

// HandleFrame records f as the latest frame.
func (m *Monitor) HandleFrame(ctx context.Context, f *pipeline.Frame) error {
	m.mu.Lock()
	m.last = f
	m.mu.Unlock()
	return nil
}

// LastFrame returns the most recent frame, or nil before the first.
func (m *Monitor) LastFrame() *pipeline.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// AttachAdminRoutes registers the monitor pages on the debug handler of mux.
func (m *Monitor) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("cloud", "Latest frame, kept and removed points", m.handleCloud)
	debug.HandleFunc("cloud.png", "Latest frame as PNG", m.handlePNG)
	debug.HandleFunc("stats", "Pipeline counters (JSON)", m.handleStats)
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	var s pipeline.Stats
	if m.stats != nil {
		s = m.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		log.Printf("failed to encode stats: %v", err)
	}
}
