package application

import (
	"context"
	"log/slog"
	"time"

	"edge-worker/worker/domain"
)

// RankingRefresher é o que o Scheduler dispara. *Refresher e Refresher satisfazem.
type RankingRefresher interface {
	Refresh(ctx context.Context) ([]domain.ContentEntry, error)
}

// Scheduler dispara refreshes periódicos. Falhas são logadas e não há retry
// dentro do mesmo tick.
type Scheduler struct {
	Refresher  RankingRefresher
	Interval   time.Duration
	RunOnStart bool
	Logger     *slog.Logger
}

// Start roda o loop numa goroutine. Pare cancelando o contexto.
func (s Scheduler) Start(ctx context.Context) {
	if s.Interval <= 0 && !s.RunOnStart {
		return
	}
	go s.Run(ctx)
}

// Run bloqueia até ctx encerrar.
func (s Scheduler) Run(ctx context.Context) {
	if s.RunOnStart {
		s.tick(ctx)
	}
	if s.Interval <= 0 {
		return
	}

	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s Scheduler) tick(ctx context.Context) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	entries, err := s.Refresher.Refresh(ctx)
	if err != nil {
		logger.Error("scheduled ranking refresh failed", "err", err)
		return
	}
	logger.Info("updated popular posts",
		"count", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
