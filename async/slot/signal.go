package slot

import (
	"context"
	"sync/atomic"

	"slot-gateway/async/slot/domain"
)

// Signal é um injetor push-only: cada Emit faz exatamente uma tentativa de
// entrega no listener conectado, sem buffer, fila ou retry.
//
// O valor zero é utilizável (origem anônima).
type Signal[T any] struct {
	listener atomic.Pointer[Listener[T]]
	source   domain.Key
}

// NewSignal cria um signal com nome de origem, usado no pacing por origem e
// nas estatísticas.
func NewSignal[T any](source string) *Signal[T] {
	return &Signal[T]{source: domain.Key(source)}
}

// Source retorna o nome de origem.
func (s *Signal[T]) Source() string { return string(s.source) }

// Connect liga o signal a l (substitui a ligação anterior). Vários signals
// podem se ligar ao mesmo listener.
func (s *Signal[T]) Connect(l *Listener[T]) {
	s.listener.Store(l)
}

// Emit tenta entregar v. Retorna true se o valor foi entregue e o slot rodou
// até a próxima suspensão (ou o fim); false se foi recusado, e nesse caso
// nada foi armazenado.
//
// Emit pode bloquear até o timeout do hub e executa código do slot antes de
// retornar.
func (s *Signal[T]) Emit(v T) bool {
	return s.EmitContext(context.Background(), v)
}

// EmitContext é Emit com um ctx que só pode encurtar a espera pelo gate.
func (s *Signal[T]) EmitContext(ctx context.Context, v T) bool {
	l := s.listener.Load()
	if l == nil {
		return false
	}
	return l.hub.deliver(ctx, l, s.source, func() { l.put(v) })
}
