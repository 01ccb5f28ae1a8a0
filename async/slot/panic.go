package slot

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

// PanicError embrulha um pânico recuperado no corpo de um slot junto com a
// pilha capturada no ponto do pânico.
type PanicError struct {
	// Value é o valor original passado para panic().
	Value any

	// Stack é a pilha da goroutine do corpo no momento do pânico.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("slot: body panicked: %v\n\n%s", e.Value, e.Stack)
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}

// usageError é um erro de uso da API detectado dentro do corpo. Nunca vai
// para o handler de pânico: volta para quem retomou o slot.
type usageError string

func (e usageError) Error() string { return string(e) }

var (
	osExit = os.Exit
	// exit é trocado apenas em testes deste pacote.
	exit = osExit
)

// fatalHandler é o destino padrão de um pânico no corpo: registra e encerra
// o processo, como aconteceria com um pânico na entrada de uma goroutine.
func fatalHandler(log *zap.Logger) func(*PanicError) {
	return func(pe *PanicError) {
		log.Error("slot body panicked, terminating",
			zap.Any("panic", pe.Value),
			zap.String("stack", pe.Stack),
		)
		_ = log.Sync()
		exit(2)
	}
}
