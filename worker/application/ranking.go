package application

import (
	"context"
	"encoding/json"
	"fmt"

	"edge-worker/worker/domain"
)

// RankingReader serve o ranking em cache sem nunca consultar a fonte de analytics.
type RankingReader struct {
	Store domain.KVStore
}

// GetTop devolve o último ranking gravado, ou uma lista vazia (nunca nil).
func (r RankingReader) GetTop(ctx context.Context) ([]domain.ContentEntry, error) {
	raw, found, err := r.Store.Get(ctx, RankingKey)
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	if !found || raw == "" {
		return []domain.ContentEntry{}, nil
	}

	var entries []domain.ContentEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	if entries == nil {
		entries = []domain.ContentEntry{}
	}
	return entries, nil
}
