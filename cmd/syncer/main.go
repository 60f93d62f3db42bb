package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"grants_fetcher/internal/config"
	"grants_fetcher/internal/provider"
	"grants_fetcher/internal/provider/euportal"
	"grants_fetcher/internal/provider/grantsgov"
	"grants_fetcher/internal/provider/worldbank"
	"grants_fetcher/internal/publisher"
	"grants_fetcher/internal/ratelimit"
	"grants_fetcher/internal/scheduler"
	"grants_fetcher/internal/service"
	"grants_fetcher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single sync and exit")
	full := flag.Bool("full", false, "reset checkpoints and sync from scratch")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *full {
		cfg.Sync.FullSync = true
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	grantStore := postgres.NewGrantStore(db)
	dependentStore := postgres.NewDependentStore(db)
	checkpointStore := postgres.NewCheckpointStore(db)
	sourceStore := postgres.NewSourceStore(db)
	txManager := postgres.NewTransactionManager(db)

	limits := make(map[string]ratelimit.Config, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		limits[name] = pc.RateLimit
	}
	limiters := ratelimit.NewRegistry(limits)

	syncers := make([]service.Syncer, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		client, err := buildClient(name, pc, logger)
		if err != nil {
			logger.Error("failed to build provider client", "provider", name, "error", err)
			os.Exit(1)
		}

		if !cfg.Sync.FullSync {
			lookback := time.Duration(cfg.Sync.LookbackDays) * 24 * time.Hour
			client = provider.NewSinceFilter(client, lookback)
		}

		syncers = append(syncers, service.NewOrchestrator(
			client,
			pc.PageSize,
			grantStore,
			dependentStore,
			checkpointStore,
			sourceStore,
			txManager,
			pub,
			limiters.For(name),
			logger,
			cfg.Sync,
		))
	}

	coordinator := service.NewRunCoordinator(sourceStore, syncers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		runCtx, cancelRun := context.WithTimeout(ctx, cfg.Sync.RunTimeout)
		defer cancelRun()
		if _, err := coordinator.Run(runCtx); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("starting grants syncer",
		"providers", len(syncers),
		"interval", cfg.Sync.Interval,
	)

	sched := scheduler.NewScheduler(coordinator, cfg.Sync.Interval, cfg.Sync.RunTimeout, logger)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func buildClient(name string, pc config.ProviderConfig, logger *slog.Logger) (provider.Client, error) {
	switch name {
	case grantsgov.SourceID:
		return grantsgov.New(grantsgov.Config{
			BaseURL: pc.BaseURL,
			Timeout: pc.Timeout,
		}, logger), nil
	case worldbank.SourceID:
		return worldbank.New(worldbank.Config{
			BaseURL: pc.BaseURL,
			Timeout: pc.Timeout,
		}, logger), nil
	case euportal.SourceID:
		return euportal.New(euportal.Config{
			BaseURL: pc.BaseURL,
			Timeout: pc.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
