package domain

// Camada de domínio do pacing por origem.
//
// Antes de disputar o gate, um hub pode consultar um limiter por origem
// (signal) e recusar de imediato quem está acima da taxa.

import "time"

type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// A camada de infra usa golang.org/x/time/rate; quando o limiter também
// expõe o estado do bucket (Tokens/Limit), a decisão fica mais precisa.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (origem do evento, IP, API key).
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é a recomendação de espera quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
	// Remaining é o saldo de tokens depois da decisão; -1 quando o limiter
	// não informa.
	Remaining int
}
