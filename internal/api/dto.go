package api

import (
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Task DTOs

// SubmitTaskResponse — ответ на отправку задачи.
type SubmitTaskResponse struct {
	TaskID string `json:"task_id"`
}

// TaskResponse — задача из журнала отправителя.
type TaskResponse struct {
	TaskID    string            `json:"task_id"`
	Type      domain.TaskType   `json:"type"`
	Payload   domain.Payload    `json:"payload"`
	Status    domain.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// TaskDetailResponse — задача вместе с её результатами.
type TaskDetailResponse struct {
	TaskResponse
	Results []ResultResponse `json:"results"`
}

// TaskFromDomain конвертирует domain.Task в TaskResponse.
// Статус COMPLETED, если для задачи есть хотя бы один результат.
func TaskFromDomain(t domain.Task, resultCount int) TaskResponse {
	status := domain.TaskStatusPending
	if resultCount > 0 {
		status = domain.TaskStatusCompleted
	}

	return TaskResponse{
		TaskID:    t.ID,
		Type:      t.Type,
		Payload:   t.Payload,
		Status:    status,
		CreatedAt: t.CreatedAt,
	}
}

// Result DTOs

// ResultResponse — результат из Result Store.
type ResultResponse struct {
	TaskID      string          `json:"task_id"`
	Type        domain.TaskType `json:"type"`
	Result      domain.Outcome  `json:"result"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// ResultFromDomain конвертирует domain.Result в ResultResponse.
func ResultFromDomain(r domain.Result) ResultResponse {
	resp := ResultResponse{
		TaskID: r.TaskID,
		Type:   r.Type,
		Result: r.Outcome,
	}
	if !r.ProcessedAt.IsZero() {
		processedAt := r.ProcessedAt
		resp.ProcessedAt = &processedAt
	}
	return resp
}

// ResultsFromDomain конвертирует список результатов.
func ResultsFromDomain(results []domain.Result) []ResultResponse {
	out := make([]ResultResponse, len(results))
	for i, r := range results {
		out[i] = ResultFromDomain(r)
	}
	return out
}
