package main

import (
	"sync"
	"sync/atomic"

	"slot-gateway/async/slot"
)

// Reading é o corpo aceito em POST /events/{source}.
type Reading struct {
	Source string  `json:"source,omitempty"`
	Value  float64 `json:"value"`
}

// sourceTotals é o acumulado de uma origem. Publicado como valor imutável:
// cada evento troca só a entrada da sua origem.
type sourceTotals struct {
	ID    int     `json:"id"`
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Last  float64 `json:"last"`
}

type totals struct {
	Events  int64                   `json:"events"`
	Sources map[string]sourceTotals `json:"sources"`
}

// tally é escrito só pelo corpo do slot e lido por GET /totals.
type tally struct {
	events  atomic.Int64
	sources sync.Map // string -> *sourceTotals
}

func (t *tally) add(ev slot.Tagged[Reading]) {
	next := sourceTotals{ID: ev.ID}
	if prev, ok := t.sources.Load(ev.Value.Source); ok {
		next = *prev.(*sourceTotals)
	}
	next.Count++
	next.Sum += ev.Value.Value
	next.Last = ev.Value.Value

	t.sources.Store(ev.Value.Source, &next)
	t.events.Add(1)
}

func (t *tally) snapshot() totals {
	out := totals{
		Events:  t.events.Load(),
		Sources: map[string]sourceTotals{},
	}
	t.sources.Range(func(k, v any) bool {
		out.Sources[k.(string)] = *v.(*sourceTotals)
		return true
	})
	return out
}

// run é o corpo do slot: uma entrega por Await, custo constante por evento.
func (t *tally) run(readings *slot.Listener[slot.Tagged[Reading]]) func() {
	return func() {
		for {
			t.add(readings.Await())
		}
	}
}
