// Package coro implementa uma corrotina simétrica mínima sobre iter.Pull.
//
// O corpo roda em sua própria pilha, mas só avança quando alguém chama
// Resume; quem chama fica bloqueado até o corpo suspender de novo (ou
// terminar). É a base comum de slot, fiber e generator.
package coro

import (
	"iter"
)

// stopped é o valor usado para desempilhar o corpo quando Stop é chamado
// com a corrotina suspensa.
type stopped struct{}

// Stopped informa se v é o valor de pânico usado por Stop para desempilhar
// o corpo. Quem faz recover dentro do corpo deve repropagar esse valor.
func Stopped(v any) bool {
	_, ok := v.(stopped)
	return ok
}

// Routine é uma corrotina cujo corpo suspende entregando um valor do tipo Y
// a quem a retomou.
//
// Não é segura para uso concorrente: Resume e Stop devem ser serializados
// pelo chamador.
type Routine[Y any] struct {
	next func() (Y, bool)
	stop func()
	done bool
}

// New cria a corrotina sem executá-la. O corpo recebe suspend, que devolve o
// controle para quem chamou Resume e só retorna na próxima retomada.
func New[Y any](body func(suspend func(Y))) *Routine[Y] {
	seq := func(yield func(Y) bool) {
		defer func() {
			if v := recover(); v != nil {
				if _, ok := v.(stopped); ok {
					return
				}
				panic(v)
			}
		}()
		body(func(y Y) {
			if !yield(y) {
				panic(stopped{})
			}
		})
	}
	next, stop := iter.Pull(iter.Seq[Y](seq))
	return &Routine[Y]{next: next, stop: stop}
}

// Resume executa o corpo até a próxima suspensão. Retorna o valor entregue
// em suspend e true, ou zero e false se o corpo terminou.
// Pânicos do corpo propagam para quem chamou Resume.
func (r *Routine[Y]) Resume() (Y, bool) {
	var zero Y
	if r.done {
		return zero, false
	}
	finished := true
	defer func() {
		if finished {
			r.done = true
		}
	}()
	y, ok := r.next()
	finished = !ok
	return y, ok
}

// Stop encerra a corrotina. Se estiver suspensa, o corpo é desempilhado
// a partir do ponto de suspensão (defers rodam). Idempotente.
func (r *Routine[Y]) Stop() {
	r.done = true
	r.stop()
}

// Done informa se o corpo terminou ou foi parado.
func (r *Routine[Y]) Done() bool { return r.done }
