package domain

import "context"

// Gate é o portão de admissão de um hub: no máximo uma entrega (valor +
// retomada do slot) passa por vez.
//
// A semântica é: Acquire bloqueia até conseguir a vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type Gate interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
