package application

import (
	"context"
	"time"

	"slot-gateway/async/slot/domain"
)

// AdmissionService concentra a regra de aquisição/liberação do gate com timeout,
// sem saber nada sobre slots ou listeners.
type AdmissionService struct {
	Gate           domain.Gate
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir o gate.
// - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `AcquireTimeout > 0`, espera até o timeout.
// Retorna (release, reason). Se reason != ReasonNone, nada foi adquirido e
// reason diz se foi o timeout do hub ou o ctx do chamador.
func (s AdmissionService) Acquire(ctx context.Context) (func(), domain.Reason) {
	if s.Gate == nil {
		return func() {}, domain.ReasonNone
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Gate.Acquire(acqCtx)
	if ok {
		return release, domain.ReasonNone
	}
	if ctx.Err() != nil {
		return nil, domain.ReasonCanceled
	}
	return nil, domain.ReasonTimeout
}
