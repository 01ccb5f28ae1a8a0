// Package domain define contratos e tipos de domínio da admissão de eventos
// em um hub (gate, pacing por origem, estatísticas).
//
// Este pacote não depende do runtime de corrotinas nem de implementações
// concretas. A intenção é permitir testes de unidade puros e desacoplar a
// regra de admissão de detalhes de infraestrutura (canal, Redis, Prometheus).
package domain
