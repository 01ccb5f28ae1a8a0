package application

import (
	"math"
	"time"

	"slot-gateway/async/slot/domain"

	"golang.org/x/time/rate"
)

// PacingService decide se uma chave (origem de eventos ou cliente HTTP) pode
// seguir agora. Não sabe nada sobre hubs nem HTTP.
type PacingService struct {
	Store domain.LimiterStore
	// RetryAfter é o piso da recomendação de espera (padrão 1s).
	RetryAfter time.Duration
}

// bucket é o estado que *rate.Limiter expõe além de Allow.
type bucket interface {
	Tokens() float64
	Limit() rate.Limit
}

// Decide consome um token da chave. Com um bucket visível, a recusa recomenda
// o tempo até o próximo token (nunca abaixo de RetryAfter) e toda decisão
// leva o saldo restante.
func (s PacingService) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Remaining: -1}
	}
	lim := s.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true, Remaining: -1}
	}

	dec := domain.Decision{Allowed: lim.Allow(), Remaining: -1}
	b, visible := lim.(bucket)
	if visible {
		dec.Remaining = max(int(math.Floor(b.Tokens())), 0)
	}
	if dec.Allowed {
		return dec
	}

	dec.RetryAfter = s.floor()
	if visible {
		if wait := nextToken(b); wait > dec.RetryAfter {
			dec.RetryAfter = wait
		}
	}
	return dec
}

func (s PacingService) floor() time.Duration {
	if s.RetryAfter <= 0 {
		return time.Second
	}
	return s.RetryAfter
}

// nextToken estima quanto falta para o bucket ter um token inteiro.
func nextToken(b bucket) time.Duration {
	limit := b.Limit()
	if limit <= 0 || limit == rate.Inf {
		return 0
	}
	missing := 1 - b.Tokens()
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(limit) * float64(time.Second))
}
