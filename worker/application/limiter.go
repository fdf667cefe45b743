package application

import (
	"context"
	"fmt"
	"time"

	"edge-worker/worker/domain"
)

const (
	// SubmissionWindow é a janela fixa de um envio por cliente.
	SubmissionWindow = time.Hour

	rateLimitKeyPrefix = "ratelimit:"
)

// RateLimiter aplica a política binária "um envio por janela" sobre um KVStore.
//
// A existência da chave é o sinal; não há contagem. Falha do store nunca vira
// allow/deny silencioso: o erro sobe e o chamador decide como degradar.
type RateLimiter struct {
	Store  domain.KVStore
	Window time.Duration
}

// Allow retorna false se existe uma entrada viva para o cliente. Sem efeitos colaterais.
func (l RateLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	if l.Store == nil {
		return false, fmt.Errorf("%w: rate limiter has no store", domain.ErrStoreUnavailable)
	}
	_, found, err := l.Store.Get(ctx, RateLimitKey(clientID))
	if err != nil {
		return false, fmt.Errorf("rate limit lookup: %w", err)
	}
	return !found, nil
}

// RecordSubmission (re)arma a janela do cliente, sobrescrevendo qualquer entrada.
func (l RateLimiter) RecordSubmission(ctx context.Context, clientID string) error {
	if l.Store == nil {
		return fmt.Errorf("%w: rate limiter has no store", domain.ErrStoreUnavailable)
	}
	if err := l.Store.Put(ctx, RateLimitKey(clientID), "1", l.WindowOrDefault()); err != nil {
		return fmt.Errorf("rate limit record: %w", err)
	}
	return nil
}

// WindowOrDefault devolve a janela efetiva (SubmissionWindow quando não configurada).
func (l RateLimiter) WindowOrDefault() time.Duration {
	if l.Window <= 0 {
		return SubmissionWindow
	}
	return l.Window
}

// RateLimitKey é a chave do bucket de um cliente no KVStore.
func RateLimitKey(clientID string) string { return rateLimitKeyPrefix + clientID }
