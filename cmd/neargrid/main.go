package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"neargrid/internal/auth"
	"neargrid/internal/config"
	"neargrid/internal/notify"
	"neargrid/internal/observability"
	"neargrid/internal/publisher"
	"neargrid/internal/scheduler"
	"neargrid/internal/server"
	"neargrid/internal/service"
	"neargrid/internal/source/ipgeo"
	"neargrid/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

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

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	// Stores
	alertStore := postgres.NewAlertStore(db)
	newsStore := postgres.NewNewsStore(db)
	txManager := postgres.NewTransactionManager(db)
	writer := postgres.NewRecordWriter(db, txManager, alertStore, newsStore)

	subscriber := postgres.NewSubscriber(postgres.SubscriberConfig{
		DSN:                  cfg.Database.DSN(),
		MinReconnectInterval: cfg.Sync.MinReconnectInterval,
		MaxReconnectInterval: cfg.Sync.MaxReconnectInterval,
	}, postgres.NewSnapshots(alertStore, newsStore), logger)

	locator := ipgeo.New(ipgeo.Config{
		URL:            cfg.Geolocation.URL,
		Timeout:        cfg.Geolocation.Timeout,
		MaxAttempts:    cfg.Geolocation.Retry.MaxAttempts,
		InitialBackoff: cfg.Geolocation.Retry.InitialBackoff,
		MaxBackoff:     cfg.Geolocation.Retry.MaxBackoff,
	}, logger)

	if cfg.Auth.Secret == "" {
		logger.Warn("auth secret not set, every sign-in will be rejected")
	}

	toaster := notify.NewToaster(rabbitMQ, clock, cfg.Feed.ToastDuration, logger)
	defer toaster.Close()

	feedService, err := service.NewFeedService(
		writer,
		rabbitMQ,
		auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer),
		locator,
		toaster,
		metrics,
		clock,
		logger,
		cfg.Feed,
	)
	if err != nil {
		logger.Error("failed to create feed service", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(subscriber, cfg.Sync.ResyncInterval, clock, logger)
	srv := server.NewServer(cfg.HTTP.Addr, feedService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting neargrid",
		"addr", cfg.HTTP.Addr,
		"radius_km", cfg.Feed.DefaultRadiusKm,
		"resync_interval", cfg.Sync.ResyncInterval,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return subscriber.Run(gctx) })
	g.Go(func() error { return feedService.Run(gctx, subscriber.Events()) })
	g.Go(func() error { return sched.Start(gctx) })
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("neargrid stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
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
