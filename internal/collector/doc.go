// Package collector забирает результаты из Result Channel.
//
// Collector — зеркало Worker'а, но проще:
//
//	Receiving → Decoding → Appending → Acknowledging → Idle
//
// Результаты складываются в Store в порядке получения. Store не
// дедуплицирует по task_id: повторная доставка одного сообщения или
// повторная публикация воркером даёт два одинаковых результата.
package collector
