// Package main is the CLI entry point for procwatch.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/procwatch/internal/config"
	"github.com/eliteGoblin/focusd/procwatch/internal/daemon"
	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
	"github.com/eliteGoblin/focusd/procwatch/internal/eventlog"
	"github.com/eliteGoblin/focusd/procwatch/internal/infra"
	"github.com/eliteGoblin/focusd/procwatch/internal/metrics"
	"github.com/eliteGoblin/focusd/procwatch/internal/usecase"
	"github.com/eliteGoblin/focusd/procwatch/internal/watchlist"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: "Process watchdog - relaunches processes that have exited",
	Long: `procwatch keeps named processes alive. Every poll interval it checks
the process table for each watched name and, when a name is missing,
runs that target's launch command as a detached process.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Supervise targets in the foreground until interrupted",
	Long: `Starts supervision and prints events as they happen.
Targets come from the config file and from repeated --watch name=command
flags. Stop with Ctrl-C (SIGINT) or SIGTERM.`,
	Example: `  procwatch run --watch nginx=/usr/sbin/nginx
  procwatch run --config procwatch.toml --metrics-addr :9102`,
	RunE: runRun,
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running processes by name",
	Long:  `Lists live processes sorted by name, to help pick the names to watch.`,
	RunE:  runPs,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded supervision events",
	Long:  `Prints events recorded by 'procwatch run --history-dir', oldest first.`,
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	watchFlags   []string
	intervalFlag time.Duration
	metricsAddr  string
	historyDir   string
	logFile      string
	logLevel     string
	psFilter     string
	historyLimit int
	jsonOutput   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (TOML, YAML or JSON)")

	runCmd.Flags().StringArrayVarP(&watchFlags, "watch", "w", nil, "Watch target as name=command (repeatable)")
	runCmd.Flags().DurationVar(&intervalFlag, "interval", daemon.DefaultPollInterval, "Poll interval")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	runCmd.Flags().StringVar(&historyDir, "history-dir", "", "Record events to an encrypted history database in this directory")
	runCmd.Flags().StringVar(&logFile, "log-file", "", "Write the operational log to this file (rotated)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	psCmd.Flags().StringVar(&psFilter, "filter", "", "Only show names containing this text (case-insensitive)")
	psCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	historyCmd.Flags().StringVar(&historyDir, "history-dir", "", "History database directory")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Number of most recent events to show (0 for all)")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.FileConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Interval = intervalFlag
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("history-dir") {
		cfg.History.Dir = historyDir
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	for _, w := range watchFlags {
		t, err := config.ParseTarget(w)
		if err != nil {
			return nil, fmt.Errorf("--watch %q: %w", w, err)
		}
		cfg.Targets = append(cfg.Targets, config.TargetConfig{Name: t.Name, Command: t.Command})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	wl, err := watchlist.NewWithTargets(cfg.WatchTargets()...)
	if err != nil {
		return err
	}

	events := eventlog.New(logger)
	out := cmd.OutOrStdout()
	events.Subscribe(func(e domain.LogEvent) {
		fmt.Fprintln(out, e.String())
	})

	if cfg.History.Dir != "" {
		store, err := infra.OpenHistory(cfg.History.Dir)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
		logger.Info("recording history",
			zap.String("path", store.Path()),
			zap.String("session", store.Session()))
		events.Subscribe(func(e domain.LogEvent) {
			if err := store.Record(e); err != nil {
				logger.Warn("failed to record event", zap.Error(err))
			}
		})
	}

	if cfg.Metrics.Addr != "" {
		srv, err := serveMetrics(cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	restarter := usecase.NewRestarter(
		infra.NewProcessRegistry(),
		infra.NewLauncher(logger),
		wl,
		events,
		logger,
	)
	supervisor := daemon.NewSupervisor(
		daemon.SupervisorConfig{PollInterval: cfg.Interval},
		wl,
		restarter,
		events,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := supervisor.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrNoTargets) {
			return fmt.Errorf("%w: use --watch name=command or a config file", err)
		}
		return err
	}
	return nil
}

// serveMetrics starts the Prometheus endpoint in the background.
func serveMetrics(addr string, logger *zap.Logger) (*http.Server, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv, nil
}

func runPs(cmd *cobra.Command, args []string) error {
	procs, err := infra.NewProcessRegistry().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}

	if psFilter != "" {
		needle := strings.ToLower(psFilter)
		filtered := procs[:0]
		for _, p := range procs {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				filtered = append(filtered, p)
			}
		}
		procs = filtered
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(procs)
	}
	for _, p := range procs {
		fmt.Fprintf(out, "%s (PID: %d)\n", p.Name, p.PID)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.History.Dir == "" {
		return errors.New("--history-dir is required (or set history.dir in the config file)")
	}
	if !infra.NewFileKeyProvider(cfg.History.Dir).KeyExists() {
		return fmt.Errorf("no history recorded in %s", cfg.History.Dir)
	}

	store, err := infra.OpenHistory(cfg.History.Dir)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	events, err := store.Recent(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s %s\n", shortSession(e.Session), e.LogEvent.String())
	}
	return nil
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("procwatch %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
