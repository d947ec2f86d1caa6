package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/pointcloud/internal/config"
	"github.com/banshee-data/pointcloud/internal/export"
	"github.com/banshee-data/pointcloud/internal/monitor"
	"github.com/banshee-data/pointcloud/internal/pipeline"
	"github.com/banshee-data/pointcloud/internal/scanlog"
	"github.com/banshee-data/pointcloud/internal/source"
	"github.com/banshee-data/pointcloud/internal/version"
)

var (
	showVersion    = flag.Bool("version", false, "Print version and exit")
	configPath     = flag.String("config", "", "Path to JSON config (defaults built in when empty)")
	listen         = flag.String("listen", "", "Debug HTTP listen address (overrides config)")
	sourceKind     = flag.String("source", "", "Packet source: sim, serial, pcap or log (overrides config)")
	serialPort     = flag.String("port", "", "Serial device for the serial source")
	pcapFile       = flag.String("pcap", "", "Capture file for the pcap source")
	session        = flag.String("session", "", "Scan log session to replay with -source=log")
	record         = flag.Bool("record", false, "Record packets to the scan log")
	listSessions   = flag.Bool("list-sessions", false, "Print recorded scan log sessions and exit")
	exportEvery    = flag.Int("export-every", 0, "Export one frame in N to the export directory (0 disables)")
	exportCompress = flag.Bool("export-zstd", false, "Write exports as .asc.zst")
	exportPNG      = flag.Bool("export-png", false, "Render a PNG next to each exported frame")
)

func loadConfig() (*config.Config, error) {
	cfg := config.EmptyConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *listen != "" {
		cfg.ListenAddr = listen
	}
	if *record {
		cfg.Record = record
	}
	if *sourceKind != "" || *serialPort != "" || *pcapFile != "" || *session != "" {
		if cfg.Source == nil {
			cfg.Source = &config.SourceConfig{}
		}
		if *sourceKind != "" {
			cfg.Source.Kind = sourceKind
		}
		if *serialPort != "" {
			cfg.Source.SerialPath = serialPort
		}
		if *pcapFile != "" {
			cfg.Source.PcapPath = pcapFile
		}
		if *session != "" {
			cfg.Source.SessionID = session
		}
	}
	return cfg, cfg.Validate()
}

// openScanLog opens the scan log when recording, replaying or listing
// sessions, and returns nil when none of those is requested.
func openScanLog(cfg *config.Config, listing bool) (*scanlog.Store, error) {
	if !cfg.GetRecord() && cfg.GetSourceKind() != source.KindLog && !listing {
		return nil, nil
	}
	path := cfg.GetScanLogPath()
	if path == "" {
		return nil, errors.New("scan_log_path is not configured")
	}
	return scanlog.Open(path)
}

func printSessions(ctx context.Context, store *scanlog.Store) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tSTARTED\tPACKETS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.SourceKind, s.Started.Format(time.RFC3339), s.PacketCount)
	}
	return tw.Flush()
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("pointcloud"))
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kind := cfg.GetSourceKind()
	store, err := openScanLog(cfg, *listSessions)
	if err != nil {
		log.Fatalf("failed to open scan log: %v", err)
	}
	if store != nil {
		defer store.Close()
	}
	if *listSessions {
		if err := printSessions(ctx, store); err != nil {
			log.Fatalf("failed to list sessions: %v", err)
		}
		return
	}

	src, err := source.Open(cfg.SourceConfig(store))
	if err != nil {
		log.Fatalf("failed to open %s source: %v", kind, err)
	}
	poller := source.NewPoller(cfg.GetQueueSize())
	poller.SetSource(src)

	filters, err := cfg.BuildFilters()
	if err != nil {
		log.Fatalf("failed to build filters: %v", err)
	}

	opts := pipeline.Options{
		PacketsPerFrame: cfg.GetPacketsPerFrame(),
		CutOnReversal:   cfg.GetCutOnReversal(),
		PollInterval:    cfg.GetPollInterval(),
		StatsInterval:   cfg.GetStatsInterval(),
		Filters:         filters,
		SourceKind:      string(kind),
	}
	if cfg.GetRecord() {
		opts.Recorder = store
	}

	var pl *pipeline.Pipeline
	mon := monitor.New(func() pipeline.Stats { return pl.Stats() })
	sinks := []pipeline.Sink{mon}
	if *exportEvery > 0 {
		exp, err := export.New(cfg.GetExportDir())
		if err != nil {
			log.Fatalf("failed to prepare exports: %v", err)
		}
		sinks = append(sinks, export.NewFrameWriter(exp, export.FrameWriterOptions{
			Every:    *exportEvery,
			Compress: *exportCompress,
			PNG:      *exportPNG,
		}))
		log.Printf("exporting one frame in %d to %s", *exportEvery, exp.Dir())
	}
	pl = pipeline.New(poller, opts, sinks...)

	mux := http.NewServeMux()
	mon.AttachAdminRoutes(mux)
	if store != nil {
		if err := store.AttachAdminRoutes(mux); err != nil {
			log.Fatalf("failed to attach scan log routes: %v", err)
		}
	}
	server := &http.Server{Addr: cfg.GetListenAddr(), Handler: mux}
	go func() {
		log.Printf("debug server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("debug server failed: %v", err)
		}
	}()

	log.Printf("starting pipeline: source=%s filters=%d packets_per_frame=%d", kind, len(filters), opts.PacketsPerFrame)
	runErr := pl.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if runErr != nil {
		log.Fatalf("pipeline failed: %v", runErr)
	}
}
