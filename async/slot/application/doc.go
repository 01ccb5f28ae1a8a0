// Package application contém os casos de uso da admissão em um hub:
// aquisição do gate com timeout e decisão de pacing por origem.
//
// Ele depende apenas do pacote domain e não conhece corrotinas nem net/http.
// Ex.: PacingService.Decide(key) retorna uma Decision (allow/deny + retry-after).
package application
