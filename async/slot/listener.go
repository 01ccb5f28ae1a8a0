package slot

import "strconv"

// Listener é a caixa de correio de uma posição de um hub: um passo lógico
// de entrada do slot.
//
// A célula só é tocada com o gate do hub em mãos: o caminho de entrega grava,
// o corpo do slot lê exatamente uma vez no Await.
type Listener[T any] struct {
	hub  *Hub
	name string

	value T
	full bool
}

// MakeListener cria um listener ligado ao gate de h. Pode ser chamado quantas
// vezes for preciso (um listener por fase/canal de entrada). name aparece em
// logs e estatísticas; vazio vira "listener-N".
func MakeListener[T any](h *Hub, name string) *Listener[T] {
	n := h.listeners.Add(1)
	if name == "" {
		name = "listener-" + strconv.FormatInt(n, 10)
	}
	return &Listener[T]{hub: h, name: name}
}

func (l *Listener[T]) Name() string { return l.name }
func (l *Listener[T]) Hub() *Hub    { return l.hub }

func (l *Listener[T]) mailboxName() string { return l.name }

// Await suspende o slot até uma entrega neste listener e retorna o valor.
//
// Só pode ser chamado de dentro do corpo do slot vinculado ao hub deste
// listener. Se o hub for fechado enquanto o corpo espera, Await não retorna:
// o corpo é desempilhado. Sem slot vinculado ao hub, Await entra em pânico
// com um erro de uso que volta para quem chamou Spawn.
func (l *Listener[T]) Await() T {
	s := l.hub.slot.Load()
	if s == nil {
		panic(usageError("slot: Await on a listener whose hub has no bound slot (call Hub.Bind before Spawn)"))
	}
	s.park(l)

	v := l.value
	var zero T
	l.value, l.full = zero, false
	return v
}

// put grava v na célula. Chamado pelo hub com o gate em mãos.
func (l *Listener[T]) put(v T) {
	if debugChecks && l.full {
		panic("slot: listener cell already holds a value")
	}
	l.value, l.full = v, true
}
