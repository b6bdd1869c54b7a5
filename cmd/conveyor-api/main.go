// Conveyor API — принимает задачи и собирает результаты.
//
// Процесс:
//   - Отправляет задачи в Task Channel (POST /api/v1/tasks)
//   - Запускает Collector: читает Result Channel в Result Store
//   - Показывает задачи и результаты через HTTP API
//   - С EMBEDDED_WORKER=true запускает Worker в том же процессе
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/api"
	"github.com/shaiso/Conveyor/internal/collector"
	"github.com/shaiso/Conveyor/internal/config"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/submitter"
	"github.com/shaiso/Conveyor/internal/telemetry"
	"github.com/shaiso/Conveyor/internal/worker"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.WithService(telemetry.SetupLogger(), "conveyor-api")
	logger.Info("starting conveyor-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Брокер и каналы
	broker, err := mq.Dial(ctx, cfg.BrokerOptions(), logger)
	if err != nil {
		logger.Error("failed to connect to broker", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	tasks, results, deadLetter, err := openChannels(ctx, broker, cfg)
	if err != nil {
		logger.Error("failed to open channels", "error", err)
		os.Exit(1)
	}
	logger.Info("channels ready",
		"backend", cfg.Backend,
		"tasks", tasks.Name(),
		"results", results.Name(),
	)
	if cfg.Backend == mq.BackendAMQP {
		logger.Debug("amqp topology", "layout", mq.TopologyInfo(cfg.TaskQueue, cfg.ResultQueue, cfg.DLQQueue))
	}

	// Collector
	store := collector.NewStore()
	c := collector.New(collector.Config{
		Results:       results,
		Store:         store,
		DeadLetter:    deadLetter,
		Wait:          cfg.PollWait,
		RetryInterval: cfg.PollInterval,
		Logger:        logger,
	})
	if err := c.Start(ctx); err != nil {
		logger.Error("failed to start collector", "error", err)
		os.Exit(1)
	}

	// Worker в том же процессе (memory backend без него бесполезен)
	embedded := cfg.EmbeddedWorker
	if cfg.Backend == mq.BackendMemory && !embedded {
		logger.Warn("memory backend is process-local, enabling embedded worker")
		embedded = true
	}

	var embeddedWorker *worker.Worker
	if embedded {
		embeddedWorker = worker.New(worker.Config{
			Tasks:          tasks,
			Results:        results,
			DeadLetter:     deadLetter,
			ConversionRate: cfg.ConversionRate,
			Wait:           cfg.PollWait,
			RetryInterval:  cfg.PollInterval,
			Logger:         telemetry.WithService(logger, "conveyor-worker"),
		})
		if err := embeddedWorker.Start(ctx); err != nil {
			logger.Error("failed to start embedded worker", "error", err)
			os.Exit(1)
		}
	}

	// API handler
	handler := api.NewHandler(api.Config{
		Submitter: submitter.New(submitter.Config{Tasks: tasks, Logger: logger}),
		Store:     store,
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.APIPort

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if embeddedWorker != nil {
		embeddedWorker.Stop()
	}
	c.Stop()

	logger.Info("stopped", "results_collected", store.Len())
}

// openChannels открывает Task, Result и (если задан) dead-letter каналы.
func openChannels(ctx context.Context, broker mq.Broker, cfg *config.Config) (tasks, results, deadLetter mq.Channel, err error) {
	if tasks, err = broker.Channel(ctx, cfg.TaskQueue); err != nil {
		return nil, nil, nil, fmt.Errorf("task channel: %w", err)
	}
	if results, err = broker.Channel(ctx, cfg.ResultQueue); err != nil {
		return nil, nil, nil, fmt.Errorf("result channel: %w", err)
	}
	if cfg.DLQQueue != "" {
		if deadLetter, err = broker.Channel(ctx, cfg.DLQQueue); err != nil {
			return nil, nil, nil, fmt.Errorf("dead-letter channel: %w", err)
		}
	}
	return tasks, results, deadLetter, nil
}
