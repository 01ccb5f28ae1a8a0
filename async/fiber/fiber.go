package fiber

import "slot-gateway/internal/coro"

// Fiber é uma tarefa retomável. O corpo chama pause para devolver o controle.
type Fiber struct {
	co *coro.Routine[struct{}]
}

// New cria a fiber sem executá-la.
func New(body func(pause func())) *Fiber {
	return &Fiber{co: coro.New(func(suspend func(struct{})) {
		body(func() { suspend(struct{}{}) })
	})}
}

// Resume executa até o próximo pause. Retorna true se ainda há trabalho
// (a fiber pausou) e false se terminou agora ou já estava terminada.
func (f *Fiber) Resume() bool {
	_, ok := f.co.Resume()
	return ok
}

func (f *Fiber) Done() bool { return f.co.Done() }

// Stop encerra a fiber; defers do corpo rodam se ela estiver pausada.
func (f *Fiber) Stop() { f.co.Stop() }
