//go:build slotdebug

package slot

import (
	"sync/atomic"

	goroutine "github.com/petermattis/goid"
)

const debugChecks = true

// resumeGuard detecta duas retomadas simultâneas do mesmo slot, o que só
// acontece se alguém contornar o gate do hub.
type resumeGuard struct {
	busy atomic.Bool
}

func (g *resumeGuard) enter() {
	if !g.busy.CompareAndSwap(false, true) {
		panic("slot: concurrent resume of the same slot")
	}
}

func (g *resumeGuard) exit() { g.busy.Store(false) }

// affinity guarda a goroutine em que o corpo roda; Await chamado de outra
// goroutine (ex.: uma goroutine disparada pelo corpo) é violação.
type affinity struct {
	id atomic.Uint64
}

func (a *affinity) pin() { a.id.Store(goid()) }

func (a *affinity) check() {
	if id := a.id.Load(); id != 0 && id != goid() {
		panic("slot: Await called off the slot body goroutine")
	}
}

// goid é o id da goroutine atual.
func goid() uint64 { return uint64(goroutine.Get()) }
