// Package ingress fornece adapters HTTP (net/http) que transformam requisições
// em emits de um slot.Signal.
//
// Visão geral (camadas):
//
//   - async/slot/domain: contratos (gate, pacing, estatísticas)
//   - async/slot/application: casos de uso (acquire/timeout, allow/deny)
//   - async/slot/infra: implementações concretas (semáforo, token bucket, Redis, Prometheus)
//   - async/slot: hub, slot, listener, signal
//   - ingress (este pacote): handlers/middlewares HTTP + extração de chave +
//     tradução de recusa para status/headers
//
// Fluxo no gateway:
//
//  1. RateLimit extrai a chave do cliente (header/XFF/IP) e aplica token bucket (429)
//  2. O handler decodifica o corpo JSON no tipo do listener (400 se inválido)
//  3. Emite no signal da origem (404 se a origem não é permitida ou excede o
//     limite de origens); se o hub recusar, responde 503 + Retry-After
//  4. Se aceito, responde 202 com o id do evento
//
// Variáveis de ambiente do binário (cmd/slotgateway) controlam o comportamento,
// como HUB_TIMEOUT, RATE_RPS, SOURCES e MAX_SOURCES.
package ingress
