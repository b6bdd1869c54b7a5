package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Статусы задачи для метрики TasksProcessedTotal.
const (
	statusSucceeded = "succeeded"
	statusUnhandled = "unhandled"
	statusMalformed = "malformed"
	statusInvalid   = "invalid"
)

// handleTask обрабатывает одно сообщение из Task Channel.
//
// Ошибка с mq.ErrDrop — задача отбрасывается (сообщение подтверждается
// без результата). Любая другая ошибка оставляет сообщение в канале.
func (w *Worker) handleTask(ctx context.Context, msg *mq.Message) error {
	task, err := mq.DecodeTask(msg.Body)
	if err != nil {
		if errors.Is(err, mq.ErrUnknownType) {
			telemetry.TasksProcessedTotal.WithLabelValues(string(task.Type), statusUnhandled).Inc()
			w.logger.Warn("unknown task type",
				"task_id", task.ID,
				"type", task.Type,
			)
			return fmt.Errorf("%w: %w", mq.ErrDrop, err)
		}

		telemetry.TasksProcessedTotal.WithLabelValues("", statusMalformed).Inc()
		w.logger.Error("failed to decode task",
			"message_id", msg.ID,
			"error", err,
			"body", string(msg.Body),
		)
		return fmt.Errorf("%w: %w", mq.ErrDrop, err)
	}

	return w.processTask(ctx, task)
}

// processTask выполняет задачу и публикует результат.
func (w *Worker) processTask(ctx context.Context, task *domain.Task) error {
	logger := telemetry.WithTaskID(w.logger, task.ID)

	// 1. Выбираем executor
	executor, err := w.registry.Get(task.Type)
	if err != nil {
		telemetry.TasksProcessedTotal.WithLabelValues(string(task.Type), statusUnhandled).Inc()
		logger.Warn("no executor for task type", "type", task.Type)
		return fmt.Errorf("%w: %w", mq.ErrDrop, err)
	}

	// 2. Выполняем. Payload проверяется при отправке; здесь
	// отбрасывается только нечисловой результат (NaN, ±Inf)
	outcome, err := executor.Execute(ctx, task)
	if err != nil {
		if errors.Is(err, ErrPayloadMismatch) || errors.Is(err, ErrNonFiniteOutcome) {
			telemetry.TasksProcessedTotal.WithLabelValues(string(task.Type), statusInvalid).Inc()
			logger.Warn("task cannot be processed", "type", task.Type, "error", err)
			return fmt.Errorf("%w: %w", mq.ErrDrop, err)
		}
		return fmt.Errorf("execute %s: %w", task.Type, err)
	}

	// 3. Публикуем результат. До успешной публикации задачу не подтверждаем
	result := domain.NewResult(task, outcome)
	if err := w.publisher.PublishResult(ctx, result); err != nil {
		if !errors.Is(err, mq.ErrChannel) {
			// Ошибка кодирования повторится при каждой доставке
			logger.Error("failed to encode result", "error", err)
			return fmt.Errorf("%w: %w", mq.ErrDrop, err)
		}
		telemetry.ChannelErrorsTotal.WithLabelValues(w.publisher.Channel().Name(), "send").Inc()
		return fmt.Errorf("publish result: %w", err)
	}

	telemetry.TasksProcessedTotal.WithLabelValues(string(task.Type), statusSucceeded).Inc()
	logger.Info("task processed",
		"type", task.Type,
		"processed_at", result.ProcessedAt,
	)
	return nil
}
