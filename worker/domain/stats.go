package domain

import (
	"context"
	"time"
)

// StatsEvent representa o desfecho de uma invocação do gate.
//
// Outcome é "accepted" ou o RejectReason. Cuidado com cardinalidade ao
// persistir ClientID.
type StatsEvent struct {
	ClientID string
	Outcome  string

	At time.Time
}

// StatsStore persiste estatísticas do gate. O chamador trata erro como
// best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
