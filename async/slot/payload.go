package slot

// Pair agrupa dois valores que precisam chegar juntos, como um único passo
// lógico. Sincronizar as duas fontes antes do emit é responsabilidade de
// quem emite.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Tagged identifica a origem de um valor em um listener com fan-in.
//
// Para fontes heterogêneas use V como uma interface selada e faça type
// switch no corpo do slot.
type Tagged[V any] struct {
	ID    int
	Value V
}

// Tag monta um Tagged.
func Tag[V any](id int, v V) Tagged[V] {
	return Tagged[V]{ID: id, Value: v}
}

// EmitTagged é um atalho para sig.Emit(Tag(id, v)).
func EmitTagged[V any](sig *Signal[Tagged[V]], id int, v V) bool {
	return sig.Emit(Tag(id, v))
}
