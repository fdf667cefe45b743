package infra

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryKV é um domain.KVStore em memória (um processo só).
// Útil para desenvolvimento e deploys de instância única.
type MemoryKV struct {
	cache *gocache.Cache
}

// NewMemoryKV cria o store; cleanupEvery controla a remoção de itens expirados
// (a leitura já ignora expirados).
func NewMemoryKV(cleanupEvery time.Duration) *MemoryKV {
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	return &MemoryKV{cache: gocache.New(gocache.NoExpiration, cleanupEvery)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryKV) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *MemoryKV) Ping(context.Context) error { return nil }
