package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edge-worker/worker"
	"edge-worker/worker/application"
	"edge-worker/worker/config"
	"edge-worker/worker/domain"
	"edge-worker/worker/infra"
	"edge-worker/worker/observability"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "optional YAML settings file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateEmail(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := worker.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingOptions{
		Enabled:  cfg.TracingEnabled,
		Endpoint: cfg.TracingEndpoint,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "err", err)
		}
	}()

	var rdb *redis.Client
	if cfg.KV.Backend == "redis" || cfg.GateStatsBackend == "redis" {
		rdb, err = connectRedis(ctx, cfg.KV)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	store, closeStore, err := openStore(ctx, cfg.KV, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	dispatcher, err := newDispatcher(ctx, cfg.Email)
	if err != nil {
		return err
	}

	var stats domain.StatsStore
	switch cfg.GateStatsBackend {
	case "memory":
		stats = infra.NewMemoryStatsStore()
	case "redis":
		stats = infra.NewRedisStatsStore(rdb)
	}

	gate := &application.Gate{
		Limiter:    application.RateLimiter{Store: store},
		Dispatcher: dispatcher,
		Stats:      stats,
		From:       cfg.Email.From,
		To:         cfg.Email.To,
	}

	var refresher application.RankingRefresher
	if cfg.Ranking.Enabled() {
		r := newRefresher(cfg.Ranking, store)
		r.Slots = infra.NewSlotPool(1)
		r.AcquireTimeout = cfg.Ranking.RefreshAcquireTimeout
		refresher = r

		application.Scheduler{
			Refresher:  r,
			Interval:   cfg.Ranking.RefreshInterval,
			RunOnStart: cfg.Ranking.RefreshOnStart,
			Logger:     logger.With("component", "scheduler"),
		}.Start(ctx)
	} else {
		logger.Warn("ranking refresh disabled: CLOUDFLARE_API_TOKEN / CLOUDFLARE_ZONE_ID not set")
	}

	clientID := worker.HeaderClientID(cfg.ClientIPHeader)

	var throttle worker.Throttler
	if cfg.Throttle.Enabled {
		ts := infra.NewThrottleStore(cfg.Throttle.RPS, cfg.Throttle.Burst)
		ts.StartJanitor(ctx)
		throttle = ts
	}

	gin.SetMode(gin.ReleaseMode)
	router := worker.NewRouter(worker.RouterOptions{
		Gate:           gate,
		Ranking:        &application.RankingReader{Store: store},
		Refresher:      refresher,
		TriggerToken:   cfg.TriggerToken,
		ClientID:       clientID,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Stats:          stats,
		Store:          store,
		Concurrency: worker.ConcurrencyOptions{
			Max:            cfg.ConcurrencyMax,
			AcquireTimeout: cfg.ConcurrencyTimeout,
		},
		Throttle: throttle,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("edge worker listening", "addr", cfg.ListenAddr, "version", version, "config", cfg)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("edge worker stopped")
	return nil
}

func connectRedis(ctx context.Context, kv config.KV) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     kv.RedisAddr,
		Password: kv.RedisPassword,
		DB:       kv.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", kv.RedisAddr, err)
	}
	return rdb, nil
}

func openStore(ctx context.Context, kv config.KV, rdb *redis.Client) (domain.KVStore, func(), error) {
	switch kv.Backend {
	case "redis":
		return infra.NewRedisKV(rdb, infra.WithKeyPrefix(kv.RedisKeyPrefix)), func() {}, nil
	case "sqlite":
		s, err := infra.OpenSQLiteKV(kv.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s.StartJanitor(ctx, 10*time.Minute)
		return s, func() { _ = s.Close() }, nil
	default:
		return infra.NewMemoryKV(5 * time.Minute), func() {}, nil
	}
}

func newDispatcher(ctx context.Context, e config.Email) (domain.Dispatcher, error) {
	switch e.Provider {
	case "smtp":
		return infra.NewSMTPDispatcher(infra.SMTPOptions{
			Host: e.SMTPHost,
			Port: e.SMTPPort,
			User: e.SMTPUser,
			Pass: e.SMTPPass,
			SSL:  e.SMTPSSL,
		}), nil
	default:
		d, err := infra.NewSESDispatcher(ctx, infra.SESOptions{
			Region:          e.AWSRegion,
			AccessKeyID:     e.AWSAccessKeyID,
			SecretAccessKey: e.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("ses: %w", err)
		}
		return d, nil
	}
}

func newRefresher(r config.Ranking, store domain.KVStore) *application.Refresher {
	return &application.Refresher{
		Source: infra.NewCloudflareAnalytics(infra.CloudflareOptions{
			Endpoint: r.AnalyticsEndpoint,
			APIToken: r.CloudflareAPIToken,
			ZoneID:   r.CloudflareZoneID,
			Timeout:  r.AnalyticsTimeout,
		}),
		Store: store,
		Options: application.RefreshOptions{
			Window:          r.AnalyticsWindow,
			Limit:           r.AnalyticsQueryLimit,
			ContentPrefix:   r.ContentPrefix,
			ExcludedSegment: r.ExcludedSegment,
		},
	}
}
