package infra

import (
	"context"

	"slot-gateway/async/slot/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PromStatsStore exporta as decisões de admissão como métricas Prometheus.
//
// Source não vira label (cardinalidade); use Redis/memória com
// trackSources se precisar do recorte por origem.
type PromStatsStore struct {
	deliveries *prometheus.CounterVec
	gateWait   *prometheus.HistogramVec
}

// NewPromStatsStore cria e registra as métricas em reg.
// namespace vazio vira "slot".
func NewPromStatsStore(reg prometheus.Registerer, namespace string) (*PromStatsStore, error) {
	if namespace == "" {
		namespace = "slot"
	}
	s := &PromStatsStore{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts into a hub, by listener and outcome.",
		}, []string{"hub", "listener", "outcome", "reason"}),
		gateWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_wait_seconds",
			Help:      "Time spent waiting for the hub admission gate.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"hub", "outcome"}),
	}
	for _, c := range []prometheus.Collector{s.deliveries, s.gateWait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PromStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "rejected"
	if ev.Accepted {
		outcome = "accepted"
	}
	s.deliveries.WithLabelValues(ev.Hub, ev.Listener, outcome, string(ev.Reason)).Inc()
	s.gateWait.WithLabelValues(ev.Hub, outcome).Observe(ev.Wait.Seconds())
	return nil
}
