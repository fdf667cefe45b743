// refresh executa um único refresh do ranking de posts populares e sai.
// Pensado para cron externo quando o servidor roda com REFRESH_INTERVAL=0.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edge-worker/worker"
	"edge-worker/worker/application"
	"edge-worker/worker/config"
	"edge-worker/worker/domain"
	"edge-worker/worker/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "optional YAML settings file")
	timeout := flag.Duration("timeout", time.Minute, "overall refresh deadline")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := worker.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if !cfg.Ranking.Enabled() {
		logger.Error("CLOUDFLARE_API_TOKEN and CLOUDFLARE_ZONE_ID are required")
		os.Exit(2)
	}
	if cfg.KV.Backend == "memory" {
		logger.Error("KV_BACKEND=memory is process-local; use redis or sqlite so the server sees the result")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	store, closeStore, err := openStore(ctx, cfg.KV)
	if err != nil {
		logger.Error("open kv store failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	r := application.Refresher{
		Source: infra.NewCloudflareAnalytics(infra.CloudflareOptions{
			Endpoint: cfg.Ranking.AnalyticsEndpoint,
			APIToken: cfg.Ranking.CloudflareAPIToken,
			ZoneID:   cfg.Ranking.CloudflareZoneID,
			Timeout:  cfg.Ranking.AnalyticsTimeout,
		}),
		Store: store,
		Options: application.RefreshOptions{
			Window:          cfg.Ranking.AnalyticsWindow,
			Limit:           cfg.Ranking.AnalyticsQueryLimit,
			ContentPrefix:   cfg.Ranking.ContentPrefix,
			ExcludedSegment: cfg.Ranking.ExcludedSegment,
		},
	}

	start := time.Now()
	entries, err := r.Refresh(ctx)
	if err != nil {
		var rerr *application.RefreshError
		stage := "unknown"
		if errors.As(err, &rerr) {
			stage = rerr.Stage
		}
		logger.Error("ranking refresh failed", "stage", stage, "err", err)
		closeStore()
		os.Exit(1)
	}

	logger.Info("updated popular posts",
		"count", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	for i, e := range entries {
		logger.Debug("ranking entry", "rank", i+1, "path", e.Path, "views", e.ViewCount, "title", e.Title)
	}
}

func openStore(ctx context.Context, kv config.KV) (domain.KVStore, func(), error) {
	switch kv.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     kv.RedisAddr,
			Password: kv.RedisPassword,
			DB:       kv.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", kv.RedisAddr, err)
		}
		return infra.NewRedisKV(rdb, infra.WithKeyPrefix(kv.RedisKeyPrefix)), func() { _ = rdb.Close() }, nil
	case "sqlite":
		s, err := infra.OpenSQLiteKV(kv.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported kv backend %q", kv.Backend)
	}
}
