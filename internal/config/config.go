package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/pointcloud/internal/filter"
	"github.com/banshee-data/pointcloud/internal/scanlog"
	"github.com/banshee-data/pointcloud/internal/source"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/pointcloud.defaults.json"

// Config is the root configuration of the point-cloud pipeline. Every field
// is optional; the Get* methods supply defaults for omitted values.
type Config struct {
	Source *SourceConfig `json:"source,omitempty"`

	// Frame and polling params
	PacketsPerFrame *int    `json:"packets_per_frame,omitempty"`
	CutOnReversal   *bool   `json:"cut_on_reversal,omitempty"`
	PollInterval    *string `json:"poll_interval,omitempty"` // duration string like "10ms"
	QueueSize       *int    `json:"queue_size,omitempty"`
	StatsInterval   *string `json:"stats_interval,omitempty"`

	Filters []FilterConfig `json:"filters,omitempty"`

	// Recording and output
	ScanLogPath *string `json:"scan_log_path,omitempty"`
	Record      *bool   `json:"record,omitempty"`
	ExportDir   *string `json:"export_dir,omitempty"`
	ListenAddr  *string `json:"listen_addr,omitempty"`
}

// SourceConfig selects the packet source.
type SourceConfig struct {
	Kind *string `json:"kind,omitempty"` // sim, serial, pcap or log

	Sim *SimConfig `json:"sim,omitempty"`

	SerialPath *string             `json:"serial_path,omitempty"`
	Serial     *source.PortOptions `json:"serial,omitempty"`

	PcapPath *string `json:"pcap_path,omitempty"`
	PcapPort *int    `json:"pcap_port,omitempty"`

	SessionID *string `json:"session_id,omitempty"`
}

// SimConfig mirrors source.SimConfig for JSON.
type SimConfig struct {
	MinAngle         *float64          `json:"min_angle,omitempty"`
	MaxAngle         *float64          `json:"max_angle,omitempty"`
	AngleIncrement   *float64          `json:"angle_increment,omitempty"`
	RoomWidth        *float64          `json:"room_width,omitempty"`
	RoomHeight       *float64          `json:"room_height,omitempty"`
	NoiseStdDev      *float64          `json:"noise_stddev,omitempty"`
	MaxScans         *int              `json:"max_scans,omitempty"`
	ClusterSpawnProb *float64          `json:"cluster_spawn_prob,omitempty"`
	ClusterMaxWidth  *float64          `json:"cluster_max_width,omitempty"` // degrees
	ClusterMaxScans  *int              `json:"cluster_max_scans,omitempty"`
	PacketsPerSecond *float64          `json:"packets_per_second,omitempty"`
	Seed             *int64            `json:"seed,omitempty"`
	Obstacles        []source.Obstacle `json:"obstacles,omitempty"`
}

// FilterConfig is one stage of the filter chain.
type FilterConfig struct {
	Type string `json:"type"`
	filter.Params
}

// EmptyConfig returns a Config with every field unset.
func EmptyConfig() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and be at most 1 MB. Omitted fields keep their defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. It panics on failure and is meant for tests.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.PacketsPerFrame != nil && *c.PacketsPerFrame < 0 {
		return fmt.Errorf("packets_per_frame must be non-negative, got %d", *c.PacketsPerFrame)
	}
	if c.QueueSize != nil && *c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive, got %d", *c.QueueSize)
	}
	for name, d := range map[string]*string{"poll_interval": c.PollInterval, "stats_interval": c.StatsInterval} {
		if d == nil || *d == "" {
			continue
		}
		v, err := time.ParseDuration(*d)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *d, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *d)
		}
	}
	if c.GetRecord() && c.GetScanLogPath() == "" {
		return fmt.Errorf("record requires scan_log_path")
	}

	if c.Source != nil && c.Source.Kind != nil {
		if _, err := source.ParseKind(*c.Source.Kind); err != nil {
			return err
		}
	}
	if c.GetSourceKind() == source.KindLog {
		if c.GetScanLogPath() == "" {
			return fmt.Errorf("log source requires scan_log_path")
		}
		if c.Source.SessionID == nil || *c.Source.SessionID == "" {
			return fmt.Errorf("log source requires source.session_id")
		}
	}
	if sim := c.simConfig(); sim != nil {
		if sim.AngleIncrement != nil && *sim.AngleIncrement <= 0 {
			return fmt.Errorf("sim.angle_increment must be positive, got %f", *sim.AngleIncrement)
		}
		if sim.ClusterSpawnProb != nil && (*sim.ClusterSpawnProb < 0 || *sim.ClusterSpawnProb > 1) {
			return fmt.Errorf("sim.cluster_spawn_prob must be between 0 and 1, got %f", *sim.ClusterSpawnProb)
		}
		if sim.ClusterMaxWidth != nil && *sim.ClusterMaxWidth <= 0 {
			return fmt.Errorf("sim.cluster_max_width must be positive, got %f", *sim.ClusterMaxWidth)
		}
		if sim.ClusterMaxScans != nil && *sim.ClusterMaxScans < 1 {
			return fmt.Errorf("sim.cluster_max_scans must be at least 1, got %d", *sim.ClusterMaxScans)
		}
	}
	if c.Source != nil && c.Source.Serial != nil {
		if _, err := c.Source.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}

	if _, err := c.BuildFilters(); err != nil {
		return err
	}
	return nil
}

func (c *Config) simConfig() *SimConfig {
	if c.Source == nil {
		return nil
	}
	return c.Source.Sim
}

// GetPacketsPerFrame returns the packet count that closes a frame. Zero
// disables count-based cutting.
func (c *Config) GetPacketsPerFrame() int {
	if c.PacketsPerFrame == nil {
		return 2048
	}
	return *c.PacketsPerFrame
}

// GetCutOnReversal reports whether a sweep reversal closes a frame.
func (c *Config) GetCutOnReversal() bool {
	if c.CutOnReversal == nil {
		return true
	}
	return *c.CutOnReversal
}

// GetPollInterval returns the source polling period.
func (c *Config) GetPollInterval() time.Duration {
	return parseDurationOr(c.PollInterval, 10*time.Millisecond)
}

// GetStatsInterval returns how often pipeline stats are logged.
func (c *Config) GetStatsInterval() time.Duration {
	return parseDurationOr(c.StatsInterval, 10*time.Second)
}

// GetQueueSize returns the poller queue bound.
func (c *Config) GetQueueSize() int {
	if c.QueueSize == nil {
		return source.DefaultQueueSize
	}
	return *c.QueueSize
}

// GetScanLogPath returns the scan log database path, or "" for none.
func (c *Config) GetScanLogPath() string {
	if c.ScanLogPath == nil {
		return ""
	}
	return *c.ScanLogPath
}

// GetRecord reports whether packets are recorded to the scan log.
func (c *Config) GetRecord() bool {
	return c.Record != nil && *c.Record
}

// GetExportDir returns the directory exports are confined to.
func (c *Config) GetExportDir() string {
	if c.ExportDir == nil || *c.ExportDir == "" {
		return "exports"
	}
	return *c.ExportDir
}

// GetListenAddr returns the debug HTTP listen address.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return "localhost:8082"
	}
	return *c.ListenAddr
}

// GetSourceKind returns the configured source kind, defaulting to sim.
func (c *Config) GetSourceKind() source.Kind {
	if c.Source == nil || c.Source.Kind == nil {
		return source.KindSim
	}
	k, err := source.ParseKind(*c.Source.Kind)
	if err != nil {
		return source.KindSim
	}
	return k
}

// SourceConfig converts the source section into a source.Config. store is
// used by the log source and may be nil otherwise.
func (c *Config) SourceConfig(store *scanlog.Store) source.Config {
	out := source.Config{Kind: c.GetSourceKind(), Log: store}
	sc := c.Source
	if sc == nil {
		return out
	}

	if sim := sc.Sim; sim != nil {
		s := &out.Sim
		setFloat(&s.MinAngle, sim.MinAngle)
		setFloat(&s.MaxAngle, sim.MaxAngle)
		setFloat(&s.AngleIncrement, sim.AngleIncrement)
		setFloat(&s.RoomWidth, sim.RoomWidth)
		setFloat(&s.RoomHeight, sim.RoomHeight)
		setFloat(&s.NoiseStdDev, sim.NoiseStdDev)
		setFloat(&s.ClusterSpawnProb, sim.ClusterSpawnProb)
		setFloat(&s.ClusterMaxWidth, sim.ClusterMaxWidth)
		setFloat(&s.PacketsPerSecond, sim.PacketsPerSecond)
		if sim.MaxScans != nil {
			s.MaxScans = *sim.MaxScans
		}
		if sim.ClusterMaxScans != nil {
			s.ClusterMaxScans = *sim.ClusterMaxScans
		}
		if sim.Seed != nil {
			s.Seed = *sim.Seed
		}
		s.Obstacles = sim.Obstacles
	}
	if sc.Sim == nil || sc.Sim.NoiseStdDev == nil {
		out.Sim.NoiseStdDev = source.DefaultSimConfig().NoiseStdDev
	}
	if sc.Sim == nil || sc.Sim.ClusterSpawnProb == nil {
		out.Sim.ClusterSpawnProb = source.DefaultSimConfig().ClusterSpawnProb
	}

	if sc.SerialPath != nil {
		out.SerialPath = *sc.SerialPath
	}
	if sc.Serial != nil {
		out.Serial = *sc.Serial
	}
	if sc.PcapPath != nil {
		out.PcapPath = *sc.PcapPath
	}
	if sc.PcapPort != nil {
		out.PcapPort = *sc.PcapPort
	}
	if sc.SessionID != nil {
		out.SessionID = *sc.SessionID
	}
	return out
}

// DefaultFilters is the chain used when the config names none.
func DefaultFilters() []FilterConfig {
	return []FilterConfig{
		{Type: "dror", Params: filter.Params{MinRadius: 0.05, Multiplier: 3, AngularResDeg: 0.5, MinNeighbors: 2}},
	}
}

// BuildFilters constructs the configured filter chain stages.
func (c *Config) BuildFilters() ([]filter.Filter, error) {
	cfgs := c.Filters
	if cfgs == nil {
		cfgs = DefaultFilters()
	}
	out := make([]filter.Filter, 0, len(cfgs))
	for i, fc := range cfgs {
		f, err := filter.New(fc.Type, fc.Params)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}
