package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Collector переносит результаты из Result Channel в Store.
type Collector struct {
	results  mq.Channel
	store    *Store
	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Collector.
type Config struct {
	// Results — Result Channel.
	Results mq.Channel

	// Store — хранилище результатов (если nil — создаётся новое).
	Store *Store

	// DeadLetter — канал для отброшенных сообщений (опционально).
	DeadLetter mq.Channel

	// Polling configuration
	Wait          time.Duration // long-poll ожидание (default: 20s)
	RetryInterval time.Duration // пауза после сбоя канала (default: 1s)

	Logger *slog.Logger
}

// New создаёт новый Collector.
func New(cfg Config) *Collector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := cfg.Store
	if store == nil {
		store = NewStore()
	}

	c := &Collector{
		results: cfg.Results,
		store:   store,
		logger:  logger,
	}

	c.consumer = mq.NewConsumer(logger, mq.ConsumerConfig{
		Name:          "collector",
		Channel:       cfg.Results,
		Handler:       c.handleResult,
		DeadLetter:    cfg.DeadLetter,
		Wait:          cfg.Wait,
		RetryInterval: cfg.RetryInterval,
	})

	return c
}

// Store возвращает хранилище результатов.
func (c *Collector) Store() *Store {
	return c.store
}

// Start запускает цикл сбора в отдельной горутине.
func (c *Collector) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("result consumer error", "error", err)
		}
	}()

	c.logger.Info("collector started", "results", c.results.Name())
	return nil
}

// RunOnce выполняет один цикл: не более одного результата.
func (c *Collector) RunOnce(ctx context.Context) error {
	return c.consumer.RunOnce(ctx)
}

// Stop останавливает Collector и ждёт завершения текущего цикла.
func (c *Collector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.consumer.Stop()
	c.wg.Wait()

	c.logger.Info("collector stopped")
}

// handleResult декодирует результат и добавляет его в Store.
// Любая ошибка декодирования отбрасывает сообщение.
func (c *Collector) handleResult(_ context.Context, msg *mq.Message) error {
	result, err := mq.DecodeResult(msg.Body)
	if err != nil {
		c.logger.Error("failed to decode result",
			"message_id", msg.ID,
			"error", err,
			"body", string(msg.Body),
		)
		return fmt.Errorf("%w: %w", mq.ErrDrop, err)
	}

	c.store.Append(*result)

	telemetry.WithTaskID(c.logger, result.TaskID).Info("result collected",
		"type", result.Type,
		"stored", c.store.Len(),
	)
	return nil
}
