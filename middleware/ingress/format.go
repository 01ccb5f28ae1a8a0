// utilitário pequeno para formatação rápida/consistente de valores numéricos em headers.
//    Evita puxar fmt só para formatação simples e padroniza o float
//    (strconv.FormatFloat) sem notação científica para valores comuns.

package ingress

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// retryAfterSeconds arredonda para baixo, mas nunca anuncia 0 segundos.
func retryAfterSeconds(d time.Duration) string {
	s := int(d.Seconds())
	if s < 1 {
		s = 1
	}
	return formatInt(s)
}
