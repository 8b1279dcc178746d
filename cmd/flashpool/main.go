// Package main is the entry point for the flashpool engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/flashpool/business/arbitrage"
	arbitrageDI "github.com/fd1az/flashpool/business/arbitrage/di"
	"github.com/fd1az/flashpool/business/arbitrage/infra"
	"github.com/fd1az/flashpool/business/lending"
	"github.com/fd1az/flashpool/business/pool"
	poolDI "github.com/fd1az/flashpool/business/pool/di"
	"github.com/fd1az/flashpool/internal/apm"
	"github.com/fd1az/flashpool/internal/config"
	"github.com/fd1az/flashpool/internal/health"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
	"github.com/fd1az/flashpool/internal/monolith"
	"github.com/fd1az/flashpool/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flashpool %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	// Run application
	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.App.TUIMode = tuiMode

	// Setup logger (only log to stderr in CLI mode)
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting flashpool engine",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	var instruments *metrics.Instruments
	if cfg.Telemetry.Enabled {
		// Set service name env var for OTEL
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		// Initialize tracing with Zipkin (local dev friendly)
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		// Initialize metrics with Prometheus
		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
		)

		instruments, err = metrics.NewInstruments()
		if err != nil {
			return fmt.Errorf("failed to create instruments: %w", err)
		}

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Start health check server on port 8081
	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	poolModule := &pool.Module{Instruments: instruments}
	lendingModule := &lending.Module{Instruments: instruments}
	arbitrageModule := &arbitrage.Module{Instruments: instruments}

	var program *tea.Program
	if tuiMode {
		program = ui.NewProgram()
		arbitrageModule.Reporter = infra.NewTUIReporter(program)
	}

	modules := []monolith.Module{
		poolModule,      // Must be first - seeds venues and liquidity
		lendingModule,   // Depends on pool for venue reserves
		arbitrageModule, // Depends on pool and lending
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	// Venues must hold liquidity for the engine to be ready.
	healthServer.RegisterCheck("venues", func(checkCtx context.Context) (bool, string) {
		pools := poolDI.GetPoolService(mono.Services())
		for _, p := range pools.Pools() {
			reserve, err := p.Reserve(p.Base().ID())
			if err != nil || reserve.Sign() <= 0 {
				return false, fmt.Sprintf("venue %s has no liquidity", p.Name())
			}
		}
		return true, ""
	})

	if tuiMode {
		startFunc := func() error {
			return mono.StartModules(ctx, modules...)
		}
		return runTUI(ctx, program, startFunc)
	}

	// CLI mode: Start modules synchronously
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	return runCLI(ctx, mono, log)
}

func runCLI(ctx context.Context, mono monolith.Monolith, log *logger.Logger) error {
	log.Info(ctx, "all modules started, engine running")

	// Wait for shutdown
	<-ctx.Done()

	log.Info(ctx, "shutting down")

	reporter := arbitrageDI.GetReporter(mono.Services())
	if err := reporter.Stop(); err != nil {
		log.Error(ctx, "error stopping reporter", "error", err)
	}

	return nil
}

func runTUI(ctx context.Context, program *tea.Program, startFunc func() error) error {
	// Run engine logic in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		if err := startFunc(); err != nil {
			program.Send(ui.LogMsg{Level: "error", Message: err.Error()})
			errCh <- err
			return
		}

		// Wait for context cancellation
		<-ctx.Done()
		program.Send(ui.QuitMsg{})
		errCh <- nil
	}()

	// Run TUI (blocking)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Check for engine errors
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
