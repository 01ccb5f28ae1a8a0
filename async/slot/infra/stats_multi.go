package infra

import (
	"context"

	"slot-gateway/async/slot/domain"

	"go.uber.org/multierr"
)

// MultiStatsStore repassa cada evento para todos os destinos, mesmo que
// algum falhe; os erros voltam combinados.
type MultiStatsStore []domain.StatsStore

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Record(ctx, ev))
	}
	return err
}
