package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Default configuration values.
const (
	DefaultWait          = 20 * time.Second
	DefaultRetryInterval = time.Second
)

// Handler — функция обработки сообщения.
//
// Результат определяет судьбу сообщения:
//   - nil — обработано, сообщение подтверждается (Delete);
//   - ошибка с ErrDrop — сообщение отбрасывается и тоже подтверждается;
//   - любая другая ошибка — сообщение не подтверждается и будет
//     доставлено повторно после visibility timeout.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения из канала по одному.
//
// Каждый цикл полностью завершается (receive → handle → delete) до
// начала следующего; единственная точка ожидания — Receive.
type Consumer struct {
	name          string
	ch            Channel
	handler       Handler
	deadLetter    *Publisher
	wait          time.Duration
	retryInterval time.Duration
	logger        *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Name — имя цикла для логов и метрик ("worker", "collector").
	Name string

	// Channel — канал, из которого читаются сообщения.
	Channel Channel

	// Handler — обработчик сообщений.
	Handler Handler

	// DeadLetter — канал для отброшенных сообщений (опционально).
	DeadLetter Channel

	// Wait — long-poll ожидание одного Receive (default: 20s).
	Wait time.Duration

	// RetryInterval — пауза после сбоя цикла (default: 1s).
	RetryInterval time.Duration
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	wait := cfg.Wait
	if wait <= 0 {
		wait = DefaultWait
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}

	c := &Consumer{
		name:          cfg.Name,
		ch:            cfg.Channel,
		handler:       cfg.Handler,
		wait:          clampWait(wait),
		retryInterval: retryInterval,
		logger:        logger.With("consumer", cfg.Name, "channel", cfg.Channel.Name()),
	}
	if cfg.DeadLetter != nil {
		c.deadLetter = NewPublisher(cfg.DeadLetter, logger)
	}
	return c
}

// Start запускает цикл потребления и блокируется до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()

	c.logger.Info("consumer started", "wait", c.wait)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			// Фиксированный интервал, без экспоненциальной задержки
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryInterval):
			}
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// RunOnce выполняет один цикл: получает не более одного сообщения,
// обрабатывает и подтверждает его.
//
// Возвращает ошибку, если цикл прерван без подтверждения: сбой канала
// или ошибка обработчика, требующая повторной доставки.
func (c *Consumer) RunOnce(ctx context.Context) error {
	msgs, err := c.ch.Receive(ctx, c.wait)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		telemetry.ChannelErrorsTotal.WithLabelValues(c.ch.Name(), "receive").Inc()
		c.logger.Error("failed to receive message", "error", err)
		return err
	}

	for i := range msgs {
		if err := c.handle(ctx, &msgs[i]); err != nil {
			return err
		}
	}
	return nil
}

// handle обрабатывает одно сообщение.
func (c *Consumer) handle(ctx context.Context, msg *Message) error {
	start := time.Now()
	defer func() {
		telemetry.CycleDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	logger := c.logger.With("message_id", msg.ID)
	if msg.ReceiveCount > 1 {
		logger.Debug("message redelivered", "receive_count", msg.ReceiveCount)
	}

	err := c.handler(ctx, msg)
	switch {
	case err == nil:
		if err := c.ack(ctx, msg); err != nil {
			return err
		}
		telemetry.MessagesTotal.WithLabelValues(c.name, telemetry.OutcomeAcked).Inc()
		return nil

	case errors.Is(err, ErrDrop):
		// Poison message — подтверждаем, чтобы не зациклить повторную доставку
		logger.Warn("dropping message", "reason", err)
		c.forwardDeadLetter(ctx, msg, logger)
		if err := c.ack(ctx, msg); err != nil {
			return err
		}
		telemetry.MessagesTotal.WithLabelValues(c.name, telemetry.OutcomeDropped).Inc()
		return nil

	default:
		// Не подтверждаем — сообщение вернётся после visibility timeout
		logger.Error("handler failed, message left for redelivery", "error", err)
		c.release(ctx, msg, logger)
		telemetry.MessagesTotal.WithLabelValues(c.name, telemetry.OutcomeRetried).Inc()
		return err
	}
}

// release возвращает сообщение в очередь, если канал это умеет.
// Ошибка только логируется: сообщение вернётся при закрытии канала.
func (c *Consumer) release(ctx context.Context, msg *Message, logger *slog.Logger) {
	releaser, ok := c.ch.(Releaser)
	if !ok {
		return
	}
	if err := releaser.Release(ctx, msg.ReceiptHandle); err != nil {
		telemetry.ChannelErrorsTotal.WithLabelValues(c.ch.Name(), "release").Inc()
		logger.Warn("failed to release message", "error", err)
	}
}

// ack удаляет сообщение из канала.
func (c *Consumer) ack(ctx context.Context, msg *Message) error {
	if err := c.ch.Delete(ctx, msg.ReceiptHandle); err != nil {
		telemetry.ChannelErrorsTotal.WithLabelValues(c.ch.Name(), "delete").Inc()
		c.logger.Error("failed to acknowledge message",
			"message_id", msg.ID,
			"error", err,
		)
		return fmt.Errorf("acknowledge %s: %w", msg.ID, err)
	}
	return nil
}

// forwardDeadLetter перекладывает отброшенное сообщение в DLQ.
// Ошибка только логируется: сообщение подтверждается в любом случае.
func (c *Consumer) forwardDeadLetter(ctx context.Context, msg *Message, logger *slog.Logger) {
	if c.deadLetter == nil {
		return
	}
	if err := c.deadLetter.PublishRaw(ctx, msg.Body); err != nil {
		telemetry.ChannelErrorsTotal.WithLabelValues(c.deadLetter.Channel().Name(), "send").Inc()
		logger.Warn("failed to forward message to dead-letter channel", "error", err)
		return
	}
	logger.Info("message forwarded to dead-letter channel",
		"dead_letter", c.deadLetter.Channel().Name(),
	)
}
