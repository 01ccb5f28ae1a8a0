// Package slot implementa slots orientados a eventos: uma corrotina de
// consumidor único (Slot) alimentada por produtores externos através de um
// hub com admissão limitada por timeout.
//
// Visão geral:
//
//   - Slot: a máquina de estados. Não tem goroutine própria para trabalhar;
//     só avança quando um emit bem-sucedido a retoma, e quem emitiu fica
//     bloqueado até ela suspender de novo no próximo Await.
//   - Hub: dono do slot e do gate de admissão. No máximo uma entrega
//     (valor + retomada) acontece por vez.
//   - Listener[T]: caixa de correio de uma posição; cada Await consome
//     exatamente uma entrega.
//   - Signal[T]: injetor push-only ligado a um listener. Vários signals podem
//     apontar para o mesmo listener (fan-in).
//
// Uso típico:
//
//	hub := slot.NewHub(50 * time.Millisecond)
//	ints := slot.MakeListener[int](hub, "ints")
//
//	s := slot.New(func() {
//		for {
//			v := ints.Await()
//			fmt.Println(v)
//		}
//	})
//	hub.Bind(s)
//	s.Spawn()
//
//	var sig slot.Signal[int]
//	sig.Connect(ints)
//	if !sig.Emit(1) {
//		// recusado: o gate não liberou dentro do timeout
//	}
//
// Backpressure é por recusa, nunca por fila: um emit que não consegue o gate
// dentro do timeout do hub retorna false e o evento é como se não tivesse
// existido. Retentar, registrar ou descartar é decisão de quem emite.
//
// Bind vem antes de Spawn: um Await sem slot vinculado entra em pânico com
// erro de uso, devolvido a quem chamou Spawn.
//
// Regras de uso (não verificadas em build normal):
//
//   - Await só pode ser chamado de dentro do corpo do slot vinculado ao hub
//     do listener, e de um listener por vez.
//   - O corpo não deve emitir para o próprio hub (o gate está com ele; o emit
//     seria recusado por timeout).
//
// Com a build tag slotdebug essas regras viram asserções (panic).
package slot
