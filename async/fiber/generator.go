package fiber

import (
	"iter"

	"slot-gateway/internal/coro"
)

// Yielder é o lado do corpo de um Generator.
type Yielder[T, U any] struct {
	suspend func(step[T])
	g       *Generator[T, U]
}

type step[T any] struct {
	value T
	// produced é false quando o corpo suspendeu em Receive.
	produced bool
}

// Yield publica v e suspende até a próxima retomada.
func (y *Yielder[T, U]) Yield(v T) {
	y.suspend(step[T]{value: v, produced: true})
}

// Receive suspende e, na retomada, retorna o último valor enviado com Send
// (zero se nada foi enviado).
func (y *Yielder[T, U]) Receive() U {
	y.suspend(step[T]{})
	return y.g.sent
}

// Generator produz valores T sob demanda e aceita entradas U.
// Use Generator[T, struct{}] quando não há entrada.
type Generator[T, U any] struct {
	co *coro.Routine[step[T]]

	current  T
	hasValue bool
	sent     U
	hasSent  bool
}

// NewGenerator cria o generator sem executá-lo.
func NewGenerator[T, U any](body func(y *Yielder[T, U])) *Generator[T, U] {
	g := &Generator[T, U]{}
	g.co = coro.New(func(suspend func(step[T])) {
		body(&Yielder[T, U]{suspend: suspend, g: g})
	})
	return g
}

// Next retoma o corpo. Retorna false quando o corpo terminou.
// Se o corpo suspendeu em Yield, Value passa a retornar o valor publicado.
func (g *Generator[T, U]) Next() bool {
	st, ok := g.co.Resume()
	if ok && st.produced {
		g.current, g.hasValue = st.value, true
	}
	return ok
}

// Send guarda u como último valor enviado e retoma o corpo.
func (g *Generator[T, U]) Send(u U) bool {
	if g.co.Done() {
		return false
	}
	g.sent, g.hasSent = u, true
	return g.Next()
}

// Value retorna o último valor publicado com Yield.
func (g *Generator[T, U]) Value() (T, bool) { return g.current, g.hasValue }

// LastSent retorna o último valor passado a Send.
func (g *Generator[T, U]) LastSent() (U, bool) { return g.sent, g.hasSent }

func (g *Generator[T, U]) Done() bool { return g.co.Done() }

// Stop encerra o generator; defers do corpo rodam se ele estiver suspenso.
func (g *Generator[T, U]) Stop() { g.co.Stop() }

// All percorre os valores publicados até o corpo terminar ou o laço parar.
// Suspensões em Receive são atravessadas sem entrada nova.
func (g *Generator[T, U]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			st, ok := g.co.Resume()
			if !ok {
				return
			}
			if !st.produced {
				continue
			}
			g.current, g.hasValue = st.value, true
			if !yield(st.value) {
				return
			}
		}
	}
}

// FromSlice cria um generator que publica os itens de items em ordem.
func FromSlice[T any](items []T) *Generator[T, struct{}] {
	return NewGenerator(func(y *Yielder[T, struct{}]) {
		for _, it := range items {
			y.Yield(it)
		}
	})
}

// Collect drena o generator em um slice.
func Collect[T, U any](g *Generator[T, U]) []T {
	var out []T
	for v := range g.All() {
		out = append(out, v)
	}
	return out
}

// CollectSend alterna Next e Send(u) até o corpo terminar, guardando o
// valor publicado após cada Send.
func CollectSend[T, U any](g *Generator[T, U], u U) []T {
	var out []T
	for g.Next() {
		if !g.Send(u) {
			break
		}
		if v, ok := g.Value(); ok {
			out = append(out, v)
		}
	}
	return out
}

// CollectInputs envia cada item de inputs e guarda o valor publicado em
// resposta: Send(in[0]), então Next/Send alternados até acabar a entrada.
func CollectInputs[T, U any](g *Generator[T, U], inputs []U) []T {
	var out []T
	if len(inputs) == 0 || !g.Send(inputs[0]) {
		return out
	}
	for i := 1; g.Next(); i++ {
		if v, ok := g.Value(); ok {
			out = append(out, v)
		}
		if i == len(inputs) || !g.Send(inputs[i]) {
			break
		}
	}
	return out
}
