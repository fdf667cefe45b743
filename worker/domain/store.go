package domain

import (
	"context"
	"time"
)

// KVStore é o armazenamento chave/valor compartilhado entre invocações.
//
// Get retorna ok=false quando a chave não existe ou expirou.
// Put com ttl <= 0 grava sem expiração. Falhas de infraestrutura devem
// embrulhar ErrStoreUnavailable.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}
