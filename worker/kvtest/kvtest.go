// Package kvtest fornece um domain.KVStore em memória com relógio controlado,
// para simular expiração de janelas nos testes.
package kvtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"edge-worker/worker/domain"
)

// Clock é um relógio manual.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Put registra uma chamada a Store.Put.
type Put struct {
	Key   string
	Value string
	TTL   time.Duration
}

type item struct {
	value     string
	expiresAt time.Time
}

// Store implementa domain.KVStore. Quando Fail != nil, toda operação falha
// embrulhando domain.ErrStoreUnavailable.
type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]item
	puts  []Put

	Fail error
}

// New cria um Store; clock nil usa time.Now.
func New(clock *Clock) *Store {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &Store{now: now, items: make(map[string]item)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, s.Fail)
	}
	it, ok := s.items[key]
	if !ok {
		return "", false, nil
	}
	if !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		delete(s.items, key)
		return "", false, nil
	}
	return it.value, true, nil
}

func (s *Store) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, s.Fail)
	}
	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = it
	s.puts = append(s.puts, Put{Key: key, Value: value, TTL: ttl})
	return nil
}

// Puts devolve uma cópia das escritas feitas até agora.
func (s *Store) Puts() []Put {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Put, len(s.puts))
	copy(out, s.puts)
	return out
}
