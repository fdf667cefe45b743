package infra

import (
	"context"

	"edge-worker/worker/domain"
)

type slotPool struct {
	sem chan struct{}
}

// NewSlotPool cria um semáforo baseado em channel com capacidade `max`.
// O worker usa capacidade 1: um refresh do ranking por vez.
func NewSlotPool(max int) domain.SlotPool {
	if max <= 0 {
		max = 1
	}
	return &slotPool{sem: make(chan struct{}, max)}
}

func (p *slotPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}
