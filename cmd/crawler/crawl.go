package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/sitecrawler/internal/config"
	"github.com/alvmarrod/sitecrawler/internal/crawler"
	"github.com/alvmarrod/sitecrawler/internal/memory"
	"github.com/alvmarrod/sitecrawler/internal/metrics"
	"github.com/alvmarrod/sitecrawler/internal/storage"
	"github.com/alvmarrod/sitecrawler/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type crawlFlags struct {
	configPath string
	workers    int
	depth      int
	timeLimit  int
	connectMs  int
	readMs     int
	exportPath string
	dbPath     string
	metrics    string
	extractor  string
	userAgent  string
	upload     bool
}

// NewCrawlCmd creates the crawl command
func NewCrawlCmd() *cobra.Command {
	f := &crawlFlags{}

	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl a website starting from a seed URL",
		Long: `Crawl a website starting from a seed URL.

Depth limiting and the time limit are enabled by passing --depth and
--time-limit. Without them the crawl runs until no new pages are found.
Press Ctrl+C once to stop the crawl and keep the results, twice to exit
immediately.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCrawlConfig(cmd, f, args)
			if err != nil {
				return err
			}
			return runCrawl(cmd.Context(), cfg, f.upload)
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func (f *crawlFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.configPath, "config", "c", "", "Path to a JSON or YAML config file")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Number of concurrent workers (1-100)")
	flags.IntVarP(&f.depth, "depth", "d", 0, "Maximum depth, enables depth limiting")
	flags.IntVarP(&f.timeLimit, "time-limit", "t", 0, "Time limit in seconds, enables the limit")
	flags.IntVar(&f.connectMs, "connect-timeout", 0, "Connect timeout in milliseconds")
	flags.IntVar(&f.readMs, "read-timeout", 0, "Read timeout in milliseconds")
	flags.StringVarP(&f.exportPath, "export", "o", "", "Write results to this text file")
	flags.StringVar(&f.dbPath, "db", "", "SQLite database path used by --upload")
	flags.StringVar(&f.metrics, "metrics", "", "Metrics JSON output path")
	flags.StringVar(&f.extractor, "extractor", "", "Content extractor: lenient or tokenizer")
	flags.StringVar(&f.userAgent, "user-agent", "", "Override the User-Agent header")
	flags.BoolVar(&f.upload, "upload", false, "Upload results to the SQLite database after the crawl")
}

// loadCrawlConfig merges the config file, flags and arguments
func loadCrawlConfig(cmd *cobra.Command, f *crawlFlags, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		cfg.SeedURL = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.ConcurrentWorkers = f.workers
	}
	if flags.Changed("depth") {
		depth := f.depth
		cfg.MaxDepth = &depth
	}
	if flags.Changed("time-limit") {
		cfg.TimeLimitSeconds = f.timeLimit
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeoutMs = f.connectMs
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeoutMs = f.readMs
	}
	if flags.Changed("export") {
		cfg.ExportPath = f.exportPath
	}
	if flags.Changed("db") {
		cfg.DBPath = f.dbPath
	}
	if flags.Changed("metrics") {
		cfg.MetricsPath = f.metrics
	}
	if flags.Changed("extractor") {
		cfg.Extractor = f.extractor
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runCrawl performs one crawl run and the post-run steps
func runCrawl(ctx context.Context, cfg *config.Config, upload bool) error {
	setLogLevel(cfg.LogLevel)
	logrus.Infof("Sitecrawler %s starting...", version.Version)
	logrus.Infof("Configuration loaded: seed=%s, workers=%d, depth=%d, time_limit=%ds",
		cfg.SeedURL, cfg.ConcurrentWorkers, cfg.DepthLimit(), cfg.TimeLimitSeconds)

	extractor, err := crawler.NewExtractor(cfg.Extractor)
	if err != nil {
		return err
	}

	tracker := metrics.NewTracker()
	visited := memory.NewVisitedSet()
	fetcher := crawler.NewCollyFetcher(crawler.FetcherConfig{
		UserAgent:      cfg.UserAgent,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
	})

	c := crawler.New(fetcher, extractor, visited,
		crawler.WithWorkers(cfg.ConcurrentWorkers),
		crawler.WithMaxDepth(cfg.DepthLimit()),
		crawler.WithTimeLimit(cfg.TimeLimit()),
		crawler.WithRecorder(tracker),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// First signal stops the crawl, a second one exits right away
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logrus.Infof("Received signal: %v, stopping crawl...", sig)
			c.Stop()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigChan:
			logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
			logrus.Warn("Attempting emergency save...")
			emergencySave(cfg, visited, tracker)
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	// Start progress logger
	var wg sync.WaitGroup
	stopProgress := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.ProgressInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p := c.Progress()
				logrus.Infof("Elapsed: %s | Parsed pages: %d | Queue: %d | In flight: %d | State: %s",
					crawler.FormatElapsed(p.Elapsed), p.PagesParsed, p.QueueSize, p.InFlight, p.State)
			case <-stopProgress:
				return
			}
		}
	}()

	result, err := c.Run(ctx, cfg.SeedURL)
	close(stopProgress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	logrus.Info("Step 1/3: Exporting results...")
	if cfg.ExportPath != "" {
		if err := storage.ExportText(cfg.ExportPath, visited.Snapshot()); err != nil {
			logrus.Errorf("Failed to export results: %v", err)
		} else {
			logrus.Infof("Exported %d pages to %s", visited.Size(), cfg.ExportPath)
		}
	}

	logrus.Info("Step 2/3: Writing final metrics...")
	logrus.Info("Final stats: " + tracker.LogProgress())
	if err := writeMetrics(tracker, cfg.MetricsPath, string(result.Reason)); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	if upload {
		logrus.Info("Step 3/3: Uploading results...")
		if err := uploadVisited(ctx, cfg.DBPath, visited); err != nil {
			return err
		}
	} else {
		logrus.Info("Step 3/3: Upload skipped (--upload not set)")
	}

	logrus.Infof("Done. Elapsed time %s, %d pages parsed", crawler.FormatElapsed(result.Elapsed), result.Pages)
	return nil
}

func uploadVisited(ctx context.Context, dbPath string, visited *memory.VisitedSet) error {
	if err := ensureDir(dbPath); err != nil {
		return err
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	result, err := visited.Flush(context.WithoutCancel(ctx), store)
	if err != nil {
		return err
	}

	logrus.Infof("Database %s: %d added, %d redundant", dbPath, result.Added, result.Redundant)
	return nil
}

func writeMetrics(tracker *metrics.Tracker, path, reason string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return tracker.WriteToFile(path, reason)
}

func emergencySave(cfg *config.Config, visited *memory.VisitedSet, tracker *metrics.Tracker) {
	if cfg.ExportPath != "" {
		if err := storage.ExportText(cfg.ExportPath, visited.Snapshot()); err != nil {
			logrus.Errorf("Emergency export failed: %v", err)
		} else {
			logrus.Info("Emergency export succeeded")
		}
	}

	if err := writeMetrics(tracker, cfg.MetricsPath, "forced_exit"); err != nil {
		logrus.Errorf("Emergency metrics save failed: %v", err)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
