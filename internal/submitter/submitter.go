package submitter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Submitter публикует задачи в Task Channel.
type Submitter struct {
	publisher *mq.Publisher
	log       *TaskLog
	logger    *slog.Logger
}

// Config — конфигурация Submitter.
type Config struct {
	// Tasks — Task Channel.
	Tasks mq.Channel

	// Log — журнал задач (если nil — создаётся новый).
	Log *TaskLog

	Logger *slog.Logger
}

// New создаёт новый Submitter.
func New(cfg Config) *Submitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	taskLog := cfg.Log
	if taskLog == nil {
		taskLog = NewTaskLog()
	}

	return &Submitter{
		publisher: mq.NewPublisher(cfg.Tasks, logger),
		log:       taskLog,
		logger:    logger,
	}
}

// Log возвращает журнал отправленных задач.
func (s *Submitter) Log() *TaskLog {
	return s.log
}

// Submit создаёт задачу, отправляет её в Task Channel и возвращает её ID.
//
// Для известного типа payload должен быть соответствующим вариантом и
// пройти проверку. Неизвестный тип принимается с domain.Opaque payload —
// такая задача будет отброшена воркером и результата не получит.
//
// Ошибка отправки возвращается как есть; задача при этом не записывается.
func (s *Submitter) Submit(ctx context.Context, taskType domain.TaskType, payload domain.Payload) (string, error) {
	if strings.TrimSpace(string(taskType)) == "" {
		return "", ErrEmptyType
	}

	canonical, known := domain.ParseTaskType(string(taskType))
	if known {
		if payload == nil || payload.Type() != canonical {
			return "", fmt.Errorf("%w: %s", domain.ErrTypeMismatch, canonical)
		}
		if err := payload.Validate(); err != nil {
			return "", err
		}
	} else if payload == nil {
		payload = domain.Opaque{Tag: canonical}
	}

	task := domain.NewTask(canonical, payload)

	if err := s.publisher.PublishTask(ctx, task); err != nil {
		s.logger.Error("failed to submit task",
			"task_id", task.ID,
			"type", task.Type,
			"error", err,
		)
		return "", fmt.Errorf("submit task: %w", err)
	}

	s.log.Record(*task)
	telemetry.TasksSubmittedTotal.WithLabelValues(string(task.Type)).Inc()

	telemetry.WithTaskID(s.logger, task.ID).Info("task submitted", "type", task.Type)
	return task.ID, nil
}
