package infra

import (
	"context"
	"testing"
	"time"

	"edge-worker/worker/domain"
)

func statsEvent(client, outcome string) domain.StatsEvent {
	return domain.StatsEvent{ClientID: client, Outcome: outcome, At: time.Now()}
}

func TestMemoryStatsStore_CountsByOutcome(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStatsStore()

	_ = s.Record(ctx, statsEvent("1.1.1.1", "accepted"))
	_ = s.Record(ctx, statsEvent("1.1.1.1", "rate_limited"))
	_ = s.Record(ctx, statsEvent("2.2.2.2", "accepted"))

	if s.Total() != 3 {
		t.Fatalf("total=%d, want 3", s.Total())
	}
	got := s.ByOutcome()
	if got["accepted"] != 2 || got["rate_limited"] != 1 {
		t.Fatalf("unexpected counters %v", got)
	}
	if len(s.ByClient("1.1.1.1")) != 0 {
		t.Fatalf("expected no per-client counters when tracking is off")
	}
}

func TestMemoryStatsStore_TrackClients(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStatsStore(WithTrackClients(true))

	_ = s.Record(ctx, statsEvent("1.1.1.1", "accepted"))
	_ = s.Record(ctx, statsEvent("1.1.1.1", "rate_limited"))

	got := s.ByClient("1.1.1.1")
	if got["accepted"] != 1 || got["rate_limited"] != 1 {
		t.Fatalf("unexpected client counters %v", got)
	}
}
