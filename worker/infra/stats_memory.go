package infra

import (
	"context"
	"sync"

	"edge-worker/worker/domain"
)

// MemoryStatsStore conta desfechos do gate em memória.
//
// Não faz expiração. Os contadores zeram a cada restart do processo.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     int64
	byOutcome map[string]int64
	byClient  map[string]map[string]int64

	trackClients bool
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithTrackClients liga contadores por cliente (cuidado com cardinalidade).
func WithTrackClients(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackClients = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byOutcome: make(map[string]int64),
		byClient:  make(map[string]map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.byOutcome[ev.Outcome]++

	if s.trackClients && ev.ClientID != "" {
		m := s.byClient[ev.ClientID]
		if m == nil {
			m = make(map[string]int64)
			s.byClient[ev.ClientID] = m
		}
		m[ev.Outcome]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByOutcome devolve uma cópia dos contadores por desfecho.
func (s *MemoryStatsStore) ByOutcome() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byOutcome))
	for k, v := range s.byOutcome {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByClient(clientID string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byClient[clientID]))
	for k, v := range s.byClient[clientID] {
		out[k] = v
	}
	return out
}
