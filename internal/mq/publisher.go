package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Publisher кодирует и публикует сообщения в канал.
type Publisher struct {
	ch     Channel
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher для канала.
func NewPublisher(ch Channel, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:     ch,
		logger: logger,
	}
}

// Channel возвращает канал, в который пишет Publisher.
func (p *Publisher) Channel() Channel {
	return p.ch
}

// PublishTask публикует задачу.
// Потребитель: Worker.
func (p *Publisher) PublishTask(ctx context.Context, task *domain.Task) error {
	body, err := EncodeTask(task)
	if err != nil {
		return err
	}

	if err := p.ch.Send(ctx, body); err != nil {
		return err
	}

	p.logger.Debug("published task",
		"channel", p.ch.Name(),
		"task_id", task.ID,
		"type", task.Type,
	)
	return nil
}

// PublishResult публикует результат задачи.
// Потребитель: Collector.
func (p *Publisher) PublishResult(ctx context.Context, result *domain.Result) error {
	body, err := EncodeResult(result)
	if err != nil {
		return err
	}

	if err := p.ch.Send(ctx, body); err != nil {
		return err
	}

	p.logger.Debug("published result",
		"channel", p.ch.Name(),
		"task_id", result.TaskID,
		"type", result.Type,
	)
	return nil
}

// PublishRaw публикует тело без перекодирования (dead-letter).
func (p *Publisher) PublishRaw(ctx context.Context, body []byte) error {
	if err := p.ch.Send(ctx, body); err != nil {
		return fmt.Errorf("publish raw: %w", err)
	}
	return nil
}
