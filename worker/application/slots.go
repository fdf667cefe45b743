package application

import (
	"context"
	"time"

	"edge-worker/worker/domain"
)

// SlotGuard concentra a aquisição de vagas com timeout, sem saber nada de HTTP.
type SlotGuard struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - Pool nil: sempre ok.
//   - AcquireTimeout <= 0: espera até o ctx encerrar.
//   - AcquireTimeout > 0: desiste após o timeout.
//
// Se ok=false, nenhuma vaga foi adquirida.
func (g SlotGuard) Acquire(ctx context.Context) (func(), bool) {
	if g.Pool == nil {
		return func() {}, true
	}
	if g.AcquireTimeout <= 0 {
		return g.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, g.AcquireTimeout)
	defer cancel()
	return g.Pool.Acquire(acqCtx)
}
