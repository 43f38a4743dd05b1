// ====================================
// File: cmd/pumpsim/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-sim/internal/config"
	"github.com/rovshanmuradov/pump-sim/internal/dex/amm"
	"github.com/rovshanmuradov/pump-sim/internal/export"
	"github.com/rovshanmuradov/pump-sim/internal/pump"
	"github.com/rovshanmuradov/pump-sim/internal/report"
	"github.com/rovshanmuradov/pump-sim/internal/simulation"
	"github.com/rovshanmuradov/pump-sim/internal/ui"
	"github.com/rovshanmuradov/pump-sim/internal/utils/logger"
	"github.com/rovshanmuradov/pump-sim/internal/utils/metrics"
)

const usage = `usage: pumpsim <command> [flags]

commands:
  run     play a quote scenario against the simulated DEX
  states  print the persisted pump states
  watch   live view of pump states with price history
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "states":
		err = statesCommand(os.Args[2:])
	case "watch":
		err = watchCommand(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pumpsim: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config and builds the logger; quiet keeps the console clear for the TUI.
func setup(configPath string, quiet bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	if quiet {
		logCfg.Console = io.Discard
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, log, nil
}

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "configs/config.json", "path to config file")
	scenarioPath := fs.StringP("scenario", "s", "configs/scenario.yaml", "path to scenario file")
	exportDir := fs.String("export", "", "directory to export results into (disabled when empty)")
	exportFormat := fs.String("format", string(export.FormatCSV), "export format: csv or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CreateStateFile {
		created, err := pump.EnsureFile(cfg.StateFile)
		if err != nil {
			return err
		}
		if created {
			log.Info("Created empty pump state file", zap.String("path", cfg.StateFile))
		}
	}

	mc := metrics.NewCollector()
	mc.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, mc, log.Logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	backend := amm.NewBackend(amm.Options{
		Latency:     cfg.BackendLatency,
		FailureRate: cfg.BackendFailureRate,
	}, log.Named("amm"))
	for _, p := range cfg.Pools {
		if err := backend.AddPool(amm.Pool{
			TokenA:   p.TokenA,
			TokenB:   p.TokenB,
			ReserveA: p.ReserveA,
			ReserveB: p.ReserveB,
		}); err != nil {
			return fmt.Errorf("invalid pool: %w", err)
		}
	}

	store := pump.NewFileStore(cfg.StateFile, log.Named("store"))
	log.Info("Using pump state file", zap.String("path", store.Path()))
	engine := pump.NewEngine(store, backend, log.Named("engine"),
		pump.WithWorkers(cfg.Workers),
		pump.WithMetrics(mc))

	quotes, err := simulation.LoadScenario(*scenarioPath, log.Logger)
	if err != nil {
		return err
	}

	runner := simulation.NewRunner(engine, log.WithOperation("scenario"), simulation.RunnerOptions{
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
	})

	done := logger.TrackPerformance(log.Logger, "scenario")
	results, runErr := runner.Run(ctx, quotes)
	done()

	summary := export.Summarize(results)
	log.Info("Scenario finished",
		zap.Int("quotes", summary.TotalQuotes),
		zap.Int("failed", summary.FailedQuotes),
		zap.Int("attempts", summary.TotalAttempts))
	for _, ts := range summary.Tokens {
		log.WithToken(ts.Token).Info("Token summary",
			zap.String("direction", ts.Direction),
			zap.Int64("first", ts.First),
			zap.Int64("last", ts.Last),
			zap.Int64("min", ts.Min),
			zap.Int64("max", ts.Max))
	}

	if *exportDir != "" && len(results) > 0 {
		exporter := export.NewQuoteExporter(log.Named("export"))
		path, err := exporter.Export(results, export.ExportOptions{
			Format:    export.ExportFormat(*exportFormat),
			OutputDir: *exportDir,
		})
		if err != nil {
			return err
		}
		log.Info("Results exported", zap.String("file", path))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func statesCommand(args []string) error {
	fs := pflag.NewFlagSet("states", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "configs/config.json", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	states, err := pump.NewFileStore(cfg.StateFile, log.Named("store")).Load()
	if err != nil {
		return err
	}
	fmt.Print(report.RenderStates(states, time.Now()))
	return nil
}

func watchCommand(args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "configs/config.json", "path to config file")
	interval := fs.DurationP("interval", "i", ui.DefaultRefreshInterval, "refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(*configPath, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	store := pump.NewFileStore(cfg.StateFile, log.Named("store"))
	p := tea.NewProgram(ui.NewWatchModel(store, *interval, log.Named("ui")), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch UI failed: %w", err)
	}
	return nil
}

func startMetricsServer(addr string, mc *metrics.Collector, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mc.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
