package infra

import (
	"context"

	"slot-gateway/async/slot/domain"
)

// ChanGate é um semáforo simples baseado em channel.
// Com capacidade 1 (o caso do hub) funciona como um mutex com espera limitada.
type ChanGate struct {
	sem chan struct{}
}

var _ domain.Gate = (*ChanGate)(nil)

// NewChanGate cria um gate com capacidade `max` (mínimo 1).
func NewChanGate(max int) *ChanGate {
	if max <= 0 {
		max = 1
	}
	return &ChanGate{sem: make(chan struct{}, max)}
}

func (g *ChanGate) Acquire(ctx context.Context) (func(), bool) {
	// tentativa sem espera primeiro: com ctx já vencido o select abaixo
	// escolheria aleatoriamente entre vaga livre e Done.
	select {
	case g.sem <- struct{}{}:
		return g.release, true
	default:
	}

	select {
	case g.sem <- struct{}{}:
		return g.release, true
	case <-ctx.Done():
		return nil, false
	}
}

func (g *ChanGate) release() { <-g.sem }

// InUse retorna quantas vagas estão ocupadas agora (valor pode estar defasado).
func (g *ChanGate) InUse() int { return len(g.sem) }
