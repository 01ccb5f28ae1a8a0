package domain

import (
	"context"
	"time"
)

// Reason explica por que uma tentativa de entrega foi recusada.
// Aceites carregam ReasonNone.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "timeout"      // gate não liberou dentro do timeout do hub
	ReasonCanceled    Reason = "canceled"     // ctx do emissor encerrou antes do timeout
	ReasonPaced       Reason = "paced"        // origem acima da taxa configurada
	ReasonUnbound     Reason = "unbound"      // hub sem slot vinculado
	ReasonNotRunning  Reason = "not_running"  // slot ainda não iniciado (Spawn)
	ReasonNotAwaiting Reason = "not_awaiting" // slot suspenso em outro listener
	ReasonClosed      Reason = "closed"       // slot terminou ou hub foi fechado
)

// StatsEvent representa o resultado de uma tentativa de entrega.
//
// Cuidado com cardinalidade: Source vem de quem cria o signal e pode
// explodir o número de séries/chaves em Redis/Prometheus.
type StatsEvent struct {
	Hub      string
	Listener string
	Source   Key

	Accepted bool
	Reason   Reason

	// Wait é o tempo gasto esperando o gate (zero quando nem chegou a esperar).
	Wait time.Duration
	At   time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de admissão.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O hub trata erro como best-effort (não altera o resultado do emit).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
