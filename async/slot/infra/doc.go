// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - ChanGate: semáforo baseado em channel, o gate de admissão de um hub
//   - Store: token bucket por chave usando golang.org/x/time/rate
//   - MemoryStatsStore, RedisStatsStore, PromStatsStore: destinos das estatísticas
//   - MultiStatsStore: fan-out para vários destinos
package infra
