// Package fiber oferece corrotinas dirigidas pelo chamador, sem hub nem gate:
//
//   - Fiber: tarefa que pausa em pontos explícitos e é retomada passo a passo.
//   - Generator[T, U]: produz valores T sob demanda e pode receber valores U
//     de quem o dirige (Send).
//
// Ambos rodam apenas dentro de Resume/Next/Send e não são seguros para uso
// concorrente. Pânicos no corpo propagam para quem chamou.
package fiber
