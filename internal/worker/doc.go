// Package worker превращает задачи в результаты.
//
// # Обзор
//
// Worker — stateless компонент системы Conveyor. Он читает задачи из
// Task Channel, вычисляет результат и публикует его в Result Channel.
//
// # Ключевые компоненты
//
// ## Worker
//
// Основная структура, управляющая жизненным циклом.
// Создаётся через New(cfg Config) и запускается методом Start(ctx).
//
//	w := worker.New(worker.Config{
//	    Tasks:   tasks,
//	    Results: results,
//	    Logger:  logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// ## Executor
//
// Интерфейс для выполнения конкретного типа задачи:
//
//	type Executor interface {
//	    Execute(ctx context.Context, task *domain.Task) (domain.Outcome, error)
//	}
//
// Реализации:
//   - CurrencyExecutor — convertedAmount = amount × rate (курс фиксирован)
//   - InterestExecutor — interest = principal × annualRate/100 × days/365
//
// # Цикл обработки
//
//	Idle → Receiving → (нет сообщения: Idle)
//	     | Decoding → Dispatching → Publishing → Acknowledging → Idle
//
//  1. Receiving — long-poll одного сообщения, единственная точка ожидания
//  2. Decoding — некорректное тело: сообщение подтверждается и отбрасывается
//  3. Dispatching — executor по типу; неизвестный тип: результата нет,
//     сообщение подтверждается
//  4. Publishing — ошибка публикации: сообщение НЕ подтверждается и будет
//     доставлено повторно после visibility timeout
//  5. Acknowledging — удаление задачи из Task Channel
//
// # Ошибки
//
// Ни одна ошибка не выходит за пределы цикла: отправитель задачи,
// для которой не удалось получить результат, просто никогда его не увидит.
package worker
