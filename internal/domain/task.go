package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — запрос на вычисление.
//
// Task создаётся Submitter'ом, проходит через Task Channel и
// потребляется Worker'ом. После подтверждения сообщения задача нигде
// не хранится, кроме локального журнала отправителя.
type Task struct {
	// ID — уникальный идентификатор задачи. Единственный ключ корреляции
	// между Task и его Result. Не меняется после создания.
	ID string `json:"task_id"`

	// Type — тег варианта payload.
	Type TaskType `json:"type"`

	// Payload — входные данные, форма определяется Type.
	Payload Payload `json:"payload"`

	// CreatedAt — время создания (с точностью до миллисекунды).
	CreatedAt time.Time `json:"created_at"`
}

// NewTask создаёт задачу со свежим ID и текущим временем.
func NewTask(taskType TaskType, payload Payload) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   payload,
		CreatedAt: Now(),
	}
}

// Result — результат обработки задачи.
//
// Result создаётся Worker'ом, проходит через Result Channel и
// добавляется Collector'ом в Result Store. Доставка at-least-once,
// поэтому для одного TaskID в Store может оказаться несколько Result.
type Result struct {
	// TaskID — ссылка на исходную задачу (не владение).
	TaskID string `json:"task_id"`

	// Type — тип задачи, скопированный из Task.
	Type TaskType `json:"type"`

	// Outcome — вычисленное значение, вариант соответствует Type.
	Outcome Outcome `json:"result"`

	// ProcessedAt — время вычисления (с точностью до миллисекунды).
	ProcessedAt time.Time `json:"processed_at"`
}

// NewResult создаёт результат для задачи с текущим временем.
func NewResult(task *Task, outcome Outcome) *Result {
	return &Result{
		TaskID:      task.ID,
		Type:        task.Type,
		Outcome:     outcome,
		ProcessedAt: Now(),
	}
}

// Now возвращает текущее время в UTC, обрезанное до миллисекунд.
// Такая точность совпадает с форматом сообщений, поэтому время
// переживает encode/decode без изменений.
func Now() time.Time {
	return FromUnixMilli(time.Now().UnixMilli())
}

// FromUnixMilli переводит Unix-время в миллисекундах в time.Time (UTC).
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
