// Conveyor Worker — превращает задачи в результаты.
//
// Worker:
//   - Получает задачи из Task Channel (SQS, RabbitMQ или Redis)
//   - Выполняет в зависимости от типа (convert_currency, calculate_interest)
//   - Публикует результат в Result Channel
//   - Подтверждает задачу только после успешной публикации
//
// Workers не хранят состояния и масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/config"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/telemetry"
	"github.com/shaiso/Conveyor/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.WithService(telemetry.SetupLogger(), "conveyor-worker")
	logger.Info("starting conveyor-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Backend == mq.BackendMemory {
		logger.Error("memory backend is process-local; use conveyor-api with EMBEDDED_WORKER=true")
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	broker, err := mq.Dial(ctx, cfg.BrokerOptions(), logger)
	if err != nil {
		logger.Error("failed to connect to broker", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	tasks, err := broker.Channel(ctx, cfg.TaskQueue)
	if err != nil {
		logger.Error("failed to open task channel", "error", err)
		os.Exit(1)
	}
	results, err := broker.Channel(ctx, cfg.ResultQueue)
	if err != nil {
		logger.Error("failed to open result channel", "error", err)
		os.Exit(1)
	}

	var deadLetter mq.Channel
	if cfg.DLQQueue != "" {
		if deadLetter, err = broker.Channel(ctx, cfg.DLQQueue); err != nil {
			logger.Error("failed to open dead-letter channel", "error", err)
			os.Exit(1)
		}
	}

	// Создаём worker
	w := worker.New(worker.Config{
		Tasks:          tasks,
		Results:        results,
		DeadLetter:     deadLetter,
		ConversionRate: cfg.ConversionRate,
		Wait:           cfg.PollWait,
		RetryInterval:  cfg.PollInterval,
		Logger:         logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":" + cfg.WorkerPort

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("conveyor-worker stopped")
}
