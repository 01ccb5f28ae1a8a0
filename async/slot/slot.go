package slot

import (
	"context"
	"sync"
	"sync/atomic"

	"slot-gateway/internal/coro"

	"go.uber.org/zap"
)

// State é o estado da máquina de um slot.
type State int32

const (
	NotStarted State = iota
	Running
	Suspended
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// mailbox é o lado não tipado de um Listener, usado para saber em qual
// listener o slot está parado.
type mailbox interface {
	mailboxName() string
}

// Slot é uma computação retomável de consumidor único.
//
// Criado por New, vinculado a um hub com Hub.Bind e iniciado uma vez com
// Spawn. Daí em diante só avança por entregas do hub.
type Slot struct {
	co      *coro.Routine[mailbox]
	suspend func(mailbox)

	state atomic.Int32
	// waiting é o listener em que o corpo está parado; só é lido e escrito
	// com o gate do hub em mãos (ou antes do Spawn).
	waiting mailbox

	spawn   sync.Once
	hub     atomic.Pointer[Hub]
	onPanic func(*PanicError)

	guard resumeGuard
	aff   affinity
}

type SlotOption func(*Slot)

// WithPanicHandler troca o destino de um pânico no corpo. O padrão registra
// o erro e encerra o processo; se o handler retornar, o slot fica Completed
// e o emit que o retomou continua aceito. Se o próprio handler entrar em
// pânico, o pânico chega a quem emitiu e o slot fica Completed.
func WithPanicHandler(fn func(*PanicError)) SlotOption {
	return func(s *Slot) { s.onPanic = fn }
}

// New cria um slot cujo corpo é body. Nada roda até Spawn.
func New(body func(), opts ...SlotOption) *Slot {
	s := &Slot{}
	for _, opt := range opts {
		opt(s)
	}
	s.co = coro.New(func(suspend func(mailbox)) {
		s.suspend = suspend
		s.aff.pin()
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if _, usage := v.(usageError); usage || coro.Stopped(v) {
				panic(v)
			}
			s.panicked(newPanicError(v))
		}()
		body()
	})
	return s
}

// Spawn executa o corpo até a primeira suspensão. Só a primeira chamada tem
// efeito. Se o slot já estiver vinculado, Spawn segura o gate do hub (sem
// timeout) enquanto o corpo roda.
//
// Vincule antes de Spawn: um Await sem slot vinculado é erro de uso e o
// pânico volta para quem chamou Spawn (não passa pelo handler de pânico).
func (s *Slot) Spawn() {
	s.spawn.Do(func() {
		if h := s.hub.Load(); h != nil {
			if h.closed.Load() {
				return
			}
			release, _ := h.admission.Gate.Acquire(context.Background())
			defer release()
			if h.closed.Load() {
				return
			}
		}
		s.resume()
	})
}

// Done informa se o corpo terminou (retorno, pânico ou Hub.Close).
func (s *Slot) Done() bool { return s.State() == Completed }

// State retorna o estado atual.
func (s *Slot) State() State { return State(s.state.Load()) }

// resume avança o corpo até a próxima suspensão ou o fim.
// Chamado com o gate em mãos (ou por Spawn em slot sem hub).
func (s *Slot) resume() {
	s.guard.enter()
	defer s.guard.exit()

	s.state.Store(int32(Running))
	// também cobre um pânico que atravessa Resume
	defer func() {
		if s.co.Done() {
			s.waiting = nil
			s.state.Store(int32(Completed))
		}
	}()
	s.co.Resume()
}

// park é chamado pelo Await de dentro do corpo.
func (s *Slot) park(mb mailbox) {
	s.aff.check()
	if debugChecks && s.State() != Running {
		panic("slot: Await called while the slot is not running")
	}

	s.waiting = mb
	s.state.Store(int32(Suspended))
	s.suspend(mb)
	s.waiting = nil
}

// stop desempilha o corpo e marca Completed. Chamado com o gate em mãos.
func (s *Slot) stop() {
	s.co.Stop()
	s.waiting = nil
	s.state.Store(int32(Completed))
}

func (s *Slot) panicked(pe *PanicError) {
	handler := s.onPanic
	if handler == nil {
		log := zap.L()
		if h := s.hub.Load(); h != nil {
			log = h.log
		}
		handler = fatalHandler(log)
	}
	handler(pe)
}
