package infra

import (
	"context"
	"sync"

	"slot-gateway/async/slot/domain"
)

type Counters struct {
	Accepted int64
	Rejected int64
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byListener map[string]Counters
	bySource   map[domain.Key]Counters
	byReason   map[domain.Reason]int64

	trackSources bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackSources(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackSources = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byListener: make(map[string]Counters),
		bySource:   make(map[domain.Key]Counters),
		byReason:   make(map[domain.Reason]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bump := func(c Counters) Counters {
		if ev.Accepted {
			c.Accepted++
		} else {
			c.Rejected++
		}
		return c
	}

	s.total = bump(s.total)
	s.byListener[ev.Listener] = bump(s.byListener[ev.Listener])
	if s.trackSources {
		s.bySource[ev.Source] = bump(s.bySource[ev.Source])
	}
	if !ev.Accepted {
		s.byReason[ev.Reason]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByListener() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byListener))
	for k, v := range s.byListener {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) BySource() map[domain.Key]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Key]Counters, len(s.bySource))
	for k, v := range s.bySource {
		out[k] = v
	}
	return out
}

// Rejections retorna quantas recusas houve por motivo.
func (s *MemoryStatsStore) Rejections() map[domain.Reason]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Reason]int64, len(s.byReason))
	for k, v := range s.byReason {
		out[k] = v
	}
	return out
}
