package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alvmarrod/spydey/internal/config"
	"github.com/alvmarrod/spydey/internal/crawler"
	"github.com/alvmarrod/spydey/internal/fetch"
	"github.com/alvmarrod/spydey/internal/frontier"
	"github.com/alvmarrod/spydey/internal/metrics"
	"github.com/alvmarrod/spydey/internal/report"
	"github.com/alvmarrod/spydey/internal/storage"
	"github.com/alvmarrod/spydey/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// flagValues receives the command-line flags before they are overlaid on the config
type flagValues struct {
	configPath     string
	recursive      bool
	pageRequisites bool
	noParent       bool
	spanHosts      bool
	accept         []string
	reject         []string
	traversal      string
	wait           float64
	randomWait     float64
	maxRequests    int
	timeout        int
	profile        bool
	logLevel       string
	logReferrer    bool
	userAgent      string
	dbPath         string
	metricsPath    string
}

// runFunc executes a crawl for a validated configuration
type runFunc func(ctx context.Context, cfg *config.Config, out io.Writer) error

// NewRootCmd creates the spydey command
func NewRootCmd() *cobra.Command {
	return newRootCmd(runCrawl)
}

func newRootCmd(run runFunc) *cobra.Command {
	flags := &flagValues{}

	cmd := &cobra.Command{
		Use:   "spydey [flags] URL",
		Short: "A simple web spider with several traversal strategies",
		Long: `spydey visits a site starting from URL and reports the HTTP status of
every page it fetches. Most options follow wget.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "JSON or YAML configuration file")
	f.BoolVarP(&flags.recursive, "recursive", "r", false, "recur into subdirectories")
	f.BoolVarP(&flags.pageRequisites, "page-requisites", "p", false, "get all images, etc. needed to display HTML page")
	f.BoolVar(&flags.noParent, "no-parent", false, "don't ascend to the parent directory")
	f.StringArrayVarP(&flags.reject, "reject", "R", nil, "regex for URLs to reject; may be given multiple times")
	f.StringArrayVarP(&flags.accept, "accept", "A", nil, "regex for URLs to accept; may be given multiple times")
	f.StringVarP(&flags.traversal, "traversal", "t", config.DefaultTraversal,
		"recursive traversal strategy; choices are: "+strings.Join(frontier.Strategies(), ", "))
	f.BoolVarP(&flags.spanHosts, "span-hosts", "H", false, "go to foreign hosts when recursive")
	f.Float64VarP(&flags.wait, "wait", "w", 0, "wait SECONDS between retrievals")
	f.Float64Var(&flags.randomWait, "random-wait", 0, "wait from 0...2*WAIT secs between retrievals")
	f.IntVar(&flags.maxRequests, "max-requests", 0, "maximum number of requests to make before exiting (0 = unlimited)")
	f.IntVarP(&flags.timeout, "timeout", "T", config.DefaultTimeoutSeconds, "network timeout in seconds; 0 means no timeout")
	f.BoolVarP(&flags.profile, "profile", "P", false,
		fmt.Sprintf("print the time to download each resource, and a summary of the %d slowest at the end", config.DefaultProfileSize))
	f.StringVar(&flags.logLevel, "loglevel", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&flags.logReferrer, "log-referrer", false, "log referrer URL for each request")
	f.StringVar(&flags.userAgent, "user-agent", config.DefaultUserAgent, "User-Agent header to send")
	f.StringVar(&flags.dbPath, "db", "", "record visits into this SQLite database")
	f.StringVar(&flags.metricsPath, "metrics", "", "write run metrics as JSON to this file")

	return cmd
}

// buildConfig loads the optional config file and overlays explicitly set flags
func buildConfig(cmd *cobra.Command, flags *flagValues, args []string) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}

	changed := cmd.Flags().Changed
	if changed("recursive") {
		cfg.Recursive = flags.recursive
	}
	if changed("page-requisites") {
		cfg.PageRequisites = flags.pageRequisites
	}
	if changed("no-parent") {
		cfg.NoParent = flags.noParent
	}
	if changed("span-hosts") {
		cfg.SpanHosts = flags.spanHosts
	}
	if changed("accept") {
		cfg.Accept = flags.accept
	}
	if changed("reject") {
		cfg.Reject = flags.reject
	}
	if changed("traversal") {
		cfg.Traversal = flags.traversal
	}
	if changed("wait") {
		cfg.Wait = flags.wait
	}
	if changed("random-wait") {
		cfg.RandomWait = flags.randomWait
	}
	if changed("max-requests") {
		cfg.MaxRequests = flags.maxRequests
	}
	if changed("timeout") {
		cfg.TimeoutSeconds = flags.timeout
	}
	if changed("profile") {
		cfg.Profile = flags.profile
	}
	if changed("loglevel") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-referrer") {
		cfg.LogReferrer = flags.logReferrer
	}
	if changed("user-agent") {
		cfg.UserAgent = flags.userAgent
	}
	if changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if changed("metrics") {
		cfg.MetricsPath = flags.metricsPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runCrawl wires the collaborators together and runs one crawl
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer) error {
	// Configure logging
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Debugf("spydey v%s: seed=%s, traversal=%s, recursive=%t",
		version.Version, cfg.SeedURL, cfg.Traversal, cfg.Recursive)

	tracker := metrics.NewTracker(cfg.SeedURL, cfg.Traversal)
	reporters := []report.Reporter{
		report.NewLogReporter(logrus.StandardLogger(), out, cfg.LogReferrer),
		tracker,
	}

	// Optional visit log
	if cfg.DBPath != "" {
		store, err := storage.NewStorage(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		recorder, err := storage.NewRunRecorder(store, cfg.SeedURL, cfg.Traversal)
		if err != nil {
			return err
		}
		reporters = append(reporters, recorder)
	}

	fetcher := fetch.NewFetcher(fetch.Options{
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.UserAgent,
	})

	c, err := crawler.NewCrawler(cfg, fetcher, report.Multi(reporters...))
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}
	logrus.Debug(tracker.LogProgress())

	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath); err != nil {
			return err
		}
		logrus.Infof("Metrics written to %s (%s)", cfg.MetricsPath, summary.Reason)
	}
	return nil
}
