package application

import (
	"context"
	"errors"
	"sync"

	"edge-worker/worker/domain"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []domain.Email
	err  error
}

func (d *fakeDispatcher) Send(_ context.Context, e domain.Email) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, e)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type fakeSource struct {
	records []domain.PathCount
	err     error
	queries []domain.TopPathsQuery
}

func (s *fakeSource) TopPaths(_ context.Context, q domain.TopPathsQuery) ([]domain.PathCount, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type fakeStats struct {
	events []domain.StatsEvent
}

func (s *fakeStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.events = append(s.events, ev)
	return nil
}

var errBoom = errors.New("boom")
