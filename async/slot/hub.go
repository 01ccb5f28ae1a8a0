package slot

import (
	"context"
	"sync/atomic"
	"time"

	"slot-gateway/async/slot/application"
	"slot-gateway/async/slot/domain"
	"slot-gateway/async/slot/infra"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub é o domínio de sincronização de um slot: dono do slot, do timeout e
// do gate de admissão.
type Hub struct {
	name    string
	timeout time.Duration

	admission application.AdmissionService
	pacing    *application.PacingService
	stats     domain.StatsStore

	statsTimeout time.Duration

	log   *zap.Logger
	clock clock.Clock

	slot      atomic.Pointer[Slot]
	closed    atomic.Bool
	listeners atomic.Int64
}

// DefaultStatsTimeout é o tempo máximo de uma gravação de estatística.
const DefaultStatsTimeout = 100 * time.Millisecond

type HubOption func(*Hub)

// WithName define o nome usado em logs e estatísticas (padrão: uuid).
func WithName(name string) HubOption {
	return func(h *Hub) { h.name = name }
}

func WithLogger(log *zap.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithStats registra cada tentativa de entrega em store (best-effort).
func WithStats(store domain.StatsStore) HubOption {
	return func(h *Hub) { h.stats = store }
}

// WithStatsTimeout limita cada gravação de estatística (padrão 100ms).
func WithStatsTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.statsTimeout = d
		}
	}
}

// WithPacer limita a taxa por origem (Signal source) antes de disputar o
// gate. Origem acima da taxa é recusada sem esperar.
func WithPacer(store domain.LimiterStore) HubOption {
	return func(h *Hub) { h.pacing = &application.PacingService{Store: store} }
}

// WithGate troca o gate padrão (ChanGate de capacidade 1). Um gate com mais
// de uma vaga quebra a garantia de retomada única; serve para testes.
func WithGate(g domain.Gate) HubOption {
	return func(h *Hub) { h.admission.Gate = g }
}

// WithClock troca o relógio usado em timestamps e medição de espera.
func WithClock(c clock.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

// NewHub cria um hub cujo gate espera no máximo timeout por entrega.
// Causa panic se timeout <= 0.
func NewHub(timeout time.Duration, opts ...HubOption) *Hub {
	if timeout <= 0 {
		panic("slot: NewHub requires timeout > 0")
	}
	h := &Hub{
		timeout:      timeout,
		statsTimeout: DefaultStatsTimeout,
		log:          zap.NewNop(),
		clock:        clock.New(),
	}
	h.admission = application.AdmissionService{
		Gate:           infra.NewChanGate(1),
		AcquireTimeout: timeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.admission.AcquireTimeout = timeout
	if h.name == "" {
		h.name = uuid.NewString()
	}
	h.log = h.log.With(zap.String("hub", h.name))
	return h
}

func (h *Hub) Name() string           { return h.name }
func (h *Hub) Timeout() time.Duration { return h.timeout }

// Bound informa se já existe um slot vinculado.
func (h *Hub) Bound() bool { return h.slot.Load() != nil }

// Closed informa se Close já foi chamado.
func (h *Hub) Closed() bool { return h.closed.Load() }

// Bind vincula s a este hub. Um hub tem no máximo um slot e um slot pertence
// a no máximo um hub: repetir a chamada é erro de uso e causa panic.
func (h *Hub) Bind(s *Slot) {
	if s == nil {
		panic("slot: Bind with nil slot")
	}
	if !s.hub.CompareAndSwap(nil, h) {
		panic("slot: slot is already bound to a hub")
	}
	if !h.slot.CompareAndSwap(nil, s) {
		s.hub.Store(nil)
		panic("slot: hub already has a bound slot")
	}
	h.log.Debug("slot bound")
}

// Close para o slot (o Await pendente é desempilhado, defers do corpo rodam)
// e faz todo emit seguinte ser recusado. Espera, sem timeout, a entrega em
// andamento terminar. Idempotente.
func (h *Hub) Close() {
	if h.closed.Swap(true) {
		return
	}
	s := h.slot.Load()
	if s == nil {
		return
	}
	release, _ := h.admission.Gate.Acquire(context.Background())
	defer release()
	s.stop()
	h.log.Debug("hub closed")
}

// deliver é o caminho de admissão de um emit: pacing, gate com timeout,
// grava o valor com put e retoma o slot até a próxima suspensão.
func (h *Hub) deliver(ctx context.Context, mb mailbox, source domain.Key, put func()) bool {
	start := h.clock.Now()
	ev := domain.StatsEvent{
		Hub:      h.name,
		Listener: mb.mailboxName(),
		Source:   source,
	}

	reject := func(reason domain.Reason) bool {
		ev.Reason = reason
		ev.At = h.clock.Now()
		h.log.Debug("emit rejected",
			zap.String("listener", ev.Listener),
			zap.String("source", string(source)),
			zap.String("reason", string(reason)),
			zap.Duration("wait", ev.Wait),
		)
		h.record(ctx, ev)
		return false
	}

	s := h.slot.Load()
	if s == nil {
		return reject(domain.ReasonUnbound)
	}
	if h.closed.Load() || s.Done() {
		return reject(domain.ReasonClosed)
	}
	if h.pacing != nil {
		if dec := h.pacing.Decide(source); !dec.Allowed {
			return reject(domain.ReasonPaced)
		}
	}

	release, reason := h.admission.Acquire(ctx)
	ev.Wait = h.clock.Since(start)
	if reason != domain.ReasonNone {
		return reject(reason)
	}

	if reason := h.handoff(s, mb, release, put); reason != domain.ReasonNone {
		return reject(reason)
	}

	ev.Accepted = true
	ev.At = h.clock.Now()
	h.record(ctx, ev)
	return true
}

// handoff grava o valor e retoma o slot com o gate em mãos. O release é
// adiado: um pânico que escape do corpo (handler de pânico do usuário) chega
// a quem emitiu, mas não deixa o gate preso.
func (h *Hub) handoff(s *Slot, mb mailbox, release func(), put func()) domain.Reason {
	defer release()

	switch {
	case h.closed.Load() || s.Done():
		return domain.ReasonClosed
	case s.State() == NotStarted:
		return domain.ReasonNotRunning
	case s.waiting != mb:
		return domain.ReasonNotAwaiting
	}

	put()
	s.resume()
	return domain.ReasonNone
}

// record é best-effort: o resultado do emit já está decidido. A gravação
// ganha no máximo statsTimeout, então um emit bloqueia por até
// timeout + statsTimeout com um store lento.
func (h *Hub) record(ctx context.Context, ev domain.StatsEvent) {
	if h.stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.statsTimeout)
	defer cancel()
	if err := h.stats.Record(ctx, ev); err != nil {
		h.log.Warn("stats record failed", zap.Error(err))
	}
}
