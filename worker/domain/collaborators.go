package domain

import (
	"context"
	"time"
)

// Email é a mensagem entregue ao provedor de envio.
type Email struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	ReplyTo  string
}

// Dispatcher entrega um Email. Não há retry: erro é definitivo para a invocação.
type Dispatcher interface {
	Send(ctx context.Context, e Email) error
}

// TopPathsQuery descreve a janela [Since, Until) e quantos paths pedir.
type TopPathsQuery struct {
	Since time.Time
	Until time.Time
	Limit int
}

// AnalyticsSource devolve os paths mais requisitados na janela, em ordem
// decrescente de requests.
type AnalyticsSource interface {
	TopPaths(ctx context.Context, q TopPathsQuery) ([]PathCount, error)
}
