// Package source produces scan packets for the point-cloud pipeline. Every
// producer (simulator, serial device, capture file, recorded session)
// implements Source; a Poller drains one into a bounded queue.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/banshee-data/pointcloud/internal/scanlog"
)

var (
	// ErrNoData is returned by Next when no packet is currently available.
	ErrNoData = errors.New("source: no data available")
	// ErrUnknownSource is returned for an unrecognised source kind.
	ErrUnknownSource = errors.New("source: unknown source kind")
	// ErrNotStarted is returned by Next before Start.
	ErrNotStarted = errors.New("source: not started")
	// ErrInvalidReading marks a reading with a non-finite field or a
	// negative range.
	ErrInvalidReading = errors.New("source: invalid reading")
)

// Packet is one range reading: the beam bearing, the measured range and the
// return strength.
type Packet struct {
	AngleDeg float64
	Distance float64
	Strength float64
	Time     time.Time
}

// Validate rejects readings that cannot be placed in the index: NaN or
// infinite angle, range or strength, and negative ranges.
func (p Packet) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"angle", p.AngleDeg}, {"distance", p.Distance}, {"strength", p.Strength}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is %g: %w", f.name, f.v, ErrInvalidReading)
		}
	}
	if p.Distance < 0 {
		return fmt.Errorf("negative distance %g: %w", p.Distance, ErrInvalidReading)
	}
	return nil
}

// Point converts the reading to a Cartesian point with the sensor at the
// origin.
func (p Packet) Point() kdtree.Point {
	return kdtree.FromPolar(p.AngleDeg, p.Distance, p.Strength)
}

// Record converts the packet to its scan log form.
func (p Packet) Record() scanlog.Record {
	return scanlog.Record{AngleDeg: p.AngleDeg, Distance: p.Distance, Strength: p.Strength, Time: p.Time}
}

// Source is a producer of scan packets. HasNext and Next never block.
type Source interface {
	// Start begins a session. It must be called once before Next.
	Start(ctx context.Context) error
	// HasNext reports whether Next would return a packet right now.
	HasNext() bool
	// Next returns the next packet, or ErrNoData if none is available.
	Next() (Packet, error)
	// Done reports that the source is exhausted and will produce nothing more.
	Done() bool
	Close() error
}

// Kind names a Source implementation.
type Kind string

const (
	KindSim    Kind = "sim"
	KindSerial Kind = "serial"
	KindPcap   Kind = "pcap"
	KindLog    Kind = "log"
)

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSim, KindSerial, KindPcap, KindLog:
		return k, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownSource)
}

// Config selects and parameterises a source.
type Config struct {
	Kind Kind

	Sim SimConfig

	SerialPath string
	Serial     PortOptions

	PcapPath string
	PcapPort int // UDP port to accept; 0 accepts any

	Log       *scanlog.Store
	SessionID string
}

// Open constructs the source described by cfg. The source is not started.
func Open(cfg Config) (Source, error) {
	switch cfg.Kind {
	case KindSim:
		return NewSimSource(cfg.Sim), nil
	case KindSerial:
		if cfg.SerialPath == "" {
			return nil, errors.New("serial source requires a port path")
		}
		return NewSerialSource(cfg.SerialPath, cfg.Serial), nil
	case KindPcap:
		if cfg.PcapPath == "" {
			return nil, errors.New("pcap source requires a capture file")
		}
		return NewPcapSource(cfg.PcapPath, cfg.PcapPort), nil
	case KindLog:
		if cfg.Log == nil || cfg.SessionID == "" {
			return nil, errors.New("log source requires a scan log and session id")
		}
		return NewLogSource(cfg.Log, cfg.SessionID), nil
	}
	return nil, fmt.Errorf("open %q: %w", cfg.Kind, ErrUnknownSource)
}
