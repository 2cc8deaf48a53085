// Package main is the entry point for the marketplace arbitrage detector.
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
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	detectionApp "github.com/lmoretti/gamearb/business/detection/app"
	detectionDomain "github.com/lmoretti/gamearb/business/detection/domain"
	"github.com/lmoretti/gamearb/business/detection/infra/sink"
	obsApp "github.com/lmoretti/gamearb/business/observation/app"
	"github.com/lmoretti/gamearb/business/observation/infra/feed"
	pricingApp "github.com/lmoretti/gamearb/business/pricing/app"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
	"github.com/lmoretti/gamearb/internal/apm"
	"github.com/lmoretti/gamearb/internal/config"
	"github.com/lmoretti/gamearb/internal/health"
	"github.com/lmoretti/gamearb/internal/logger"
	"github.com/lmoretti/gamearb/internal/metrics"
	"github.com/lmoretti/gamearb/internal/ratelimit"
	"github.com/lmoretti/gamearb/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gamearb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Detection.TUIMode = tuiMode

	// In TUI mode logs would fight the dashboard for the terminal
	logLevel := logger.ParseLevel(cfg.App.LogLevel)
	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name)
		log.Info(ctx, "starting marketplace arbitrage detector",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	// Observability
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

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

	// Health check server
	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", logger.Err(err))
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	// Pricing: rate table, fee schedules, volatility window
	reporting, err := pricingDomain.NewCurrency(cfg.Detection.ReportingCurrency)
	if err != nil {
		return fmt.Errorf("invalid reporting currency: %w", err)
	}
	rates := pricingApp.NewRates(reporting, pricingApp.DefaultRateTTL)
	for ccy, rate := range cfg.Pricing.Rates {
		currency, err := pricingDomain.NewCurrency(ccy)
		if err != nil {
			return fmt.Errorf("invalid rate currency %q: %w", ccy, err)
		}
		if err := rates.SetStaticRate(currency, decimal.NewFromFloat(rate)); err != nil {
			return fmt.Errorf("invalid rate for %s: %w", ccy, err)
		}
	}
	fees := make(pricingDomain.FeeTable, len(cfg.Pricing.Fees))
	for name, f := range cfg.Pricing.Fees {
		fees[name] = pricingDomain.FeeSchedule{
			PlatformPct:    decimal.NewFromFloat(f.PlatformPct),
			TransactionPct: decimal.NewFromFloat(f.TransactionPct),
			TransactionFix: decimal.NewFromFloat(f.TransactionFix),
			PaymentPct:     decimal.NewFromFloat(f.PaymentPct),
		}
	}
	volatility := pricingApp.NewVolatilityTracker(cfg.Risk.VolatilityDepth)

	// Observation intake
	book := obsApp.NewBook()
	ingestor := obsApp.NewIngestor(book, rates, volatility, log)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Feed.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn(ctx, "redis unreachable at startup, feed will retry", logger.Err(err))
	}
	healthServer.RegisterCheck("redis", func(ctx context.Context) (bool, string) {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	redisFeed := feed.NewRedis(redisClient, feed.RedisConfig{
		Stream:   cfg.Feed.RedisStream,
		Group:    cfg.Feed.RedisGroup,
		Consumer: cfg.Feed.RedisConsumer,
	}, ingestor, log)
	go func() {
		if err := redisFeed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "redis feed stopped", logger.Err(err))
		}
	}()

	if cfg.Feed.WebSocketURL != "" {
		wsFeed := feed.NewWebSocket(cfg.Feed.WebSocketURL, ingestor, log)
		go func() {
			if err := wsFeed.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error(ctx, "websocket feed stopped", logger.Err(err))
			}
		}()
	}

	// Detection core
	weights := detectionDomain.RiskWeights{
		Staleness:   cfg.Risk.StalenessWeight,
		Volatility:  cfg.Risk.VolatilityWeight,
		Reliability: cfg.Risk.ReliabilityWeight,
		Exposure:    cfg.Risk.ExposureWeight,
	}
	if err := weights.Validate(); err != nil {
		return fmt.Errorf("invalid risk weights: %w", err)
	}

	scorer := detectionApp.NewRiskScorer(weights, cfg.Detection.FreshnessWindow, cfg.Detection.MaxInvestmentDecimal())
	matcher := detectionApp.NewMatcher(detectionApp.MatcherConfig{
		MinProfitMargin:   cfg.Detection.MinProfitMarginDecimal(),
		MinAbsoluteProfit: cfg.Detection.MinAbsoluteProfitDecimal(),
		MaxInvestment:     cfg.Detection.MaxInvestmentDecimal(),
		FreshnessWindow:   cfg.Detection.FreshnessWindow,
		ReportingCurrency: reporting,
	}, scorer, volatility.Coefficient,
		detectionApp.StaticReliability(cfg.Risk.Reliability, cfg.Risk.DefaultReliability),
		fees)

	store := detectionApp.NewStore(cfg.Detection.MaxHoldTime, cfg.Detection.PassInterval)

	// Emission chain
	stats := sink.NewStats()
	sinks := []detectionApp.EmissionSink{stats}
	if cfg.Emission.Console && !tuiMode {
		sinks = append(sinks, sink.NewConsole(log))
	}
	if cfg.Emission.RedisStream != "" {
		publisher := sink.NewRedisStream(redisClient, cfg.Emission.RedisStream)
		sinks = append(sinks, sink.NewBreaker("emission-redis", publisher, log))
	}
	if cfg.Emission.SQLitePath != "" {
		history, err := sink.NewHistory(cfg.Emission.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		sinks = append(sinks, sink.NewBreaker("emission-history", history, log))
	}
	fanout := sink.NewFanout(sinks...)
	defer fanout.Close()

	detector, err := detectionApp.NewDetector(detectionApp.DetectorConfig{
		PassInterval:    cfg.Detection.PassInterval,
		SweepInterval:   cfg.Detection.SweepInterval,
		Workers:         cfg.Detection.Workers,
		FreshnessWindow: cfg.Detection.FreshnessWindow,
	}, matcher, store, book, fanout,
		rates.NormalizeFunc(),
		ratelimit.New(cfg.Detection.PassesPerMinute),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}

	if tuiMode {
		return runTUI(ctx, detector, store, stats)
	}
	return runCLI(ctx, detector, log)
}

func runCLI(ctx context.Context, detector *detectionApp.Detector, log *logger.Logger) error {
	log.Info(ctx, "beginning opportunity detection")
	err := detector.Run(ctx)
	log.Info(ctx, "shutting down")
	return err
}

func runTUI(ctx context.Context, detector *detectionApp.Detector, store *detectionApp.Store, stats *sink.Stats) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- detector.Run(ctx)
	}()

	p := tea.NewProgram(ui.New(store, stats), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// TUI quit: stop the detector and collect its exit
	cancel()
	if err := <-errCh; err != nil && err != context.Canceled {
		return err
	}
	return nil
}
