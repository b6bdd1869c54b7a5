package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/mq"
)

// Worker превращает задачи из Task Channel в результаты в Result Channel.
//
// Worker:
//   - Получает задачи из Task Channel (long-poll, по одной)
//   - Выбирает executor по типу задачи
//   - Публикует результат в Result Channel
//   - Подтверждает задачу только после успешной публикации
//     или после решения её отбросить
//
// Цикл однопоточный: следующая задача берётся только после того,
// как предыдущая полностью обработана.
type Worker struct {
	// MQ
	tasks     mq.Channel
	publisher *mq.Publisher
	consumer  *mq.Consumer

	// Executor registry
	registry *Registry

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Tasks — Task Channel, источник задач.
	Tasks mq.Channel

	// Results — Result Channel, куда публикуются результаты.
	Results mq.Channel

	// DeadLetter — канал для отброшенных задач (опционально).
	DeadLetter mq.Channel

	// Executor registry (опционально; если nil — NewRegistry(ConversionRate))
	Registry       *Registry
	ConversionRate float64

	// Polling configuration
	Wait          time.Duration // long-poll ожидание (default: 20s)
	RetryInterval time.Duration // пауза после сбоя канала (default: 1s)

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry(cfg.ConversionRate)
	}

	w := &Worker{
		tasks:     cfg.Tasks,
		publisher: mq.NewPublisher(cfg.Results, logger),
		registry:  registry,
		logger:    logger,
	}

	w.consumer = mq.NewConsumer(logger, mq.ConsumerConfig{
		Name:          "worker",
		Channel:       cfg.Tasks,
		Handler:       w.handleTask,
		DeadLetter:    cfg.DeadLetter,
		Wait:          cfg.Wait,
		RetryInterval: cfg.RetryInterval,
	})

	return w
}

// Start запускает цикл обработки в отдельной горутине.
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"tasks", w.tasks.Name(),
		"results", w.publisher.Channel().Name(),
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("task consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// RunOnce выполняет один цикл обработки: не более одной задачи.
func (w *Worker) RunOnce(ctx context.Context) error {
	return w.consumer.RunOnce(ctx)
}

// Stop останавливает Worker и ждёт завершения текущего цикла.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	w.consumer.Stop()

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
