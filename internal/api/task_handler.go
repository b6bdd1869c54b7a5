package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/submitter"
)

// maxRequestBody — ограничение размера тела запроса.
const maxRequestBody = 1 << 20

// SubmitTask отправляет новую задачу.
// POST /api/v1/tasks
//
// JSON-тело — {"type": "...", "payload": {...}} или плоский объект, где
// поля payload лежат рядом с type. HTML-форма
// (application/x-www-form-urlencoded) присылает плоские поля строками.
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var (
		taskType domain.TaskType
		raw      json.RawMessage
		err      error
	)
	if isFormRequest(r) {
		taskType, raw, err = parseSubmitForm(r)
	} else {
		var body []byte
		body, err = io.ReadAll(r.Body)
		if err != nil {
			BadRequest(w, "invalid request body")
			return
		}
		taskType, raw, err = parseSubmitRequest(body)
	}
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	payload, err := mq.DecodePayload(taskType, raw)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	taskID, err := h.submitter.Submit(r.Context(), taskType, payload)
	if HandleSubmitError(w, h.logger, err) {
		return
	}

	Created(w, SubmitTaskResponse{TaskID: taskID})
}

// ListTasks возвращает журнал отправленных задач.
// GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := h.submitter.Log().Snapshot()

	counts := make(map[string]int)
	for _, res := range h.store.Snapshot() {
		counts[res.TaskID]++
	}

	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t, counts[t.ID])
	}

	List(w, result, len(result))
}

// GetTask возвращает задачу и все её результаты.
// GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.submitter.Log().Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, submitter.ErrTaskNotFound) {
			NotFound(w, "task not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	results := h.store.ByTaskID(task.ID)

	Success(w, TaskDetailResponse{
		TaskResponse: TaskFromDomain(task, len(results)),
		Results:      ResultsFromDomain(results),
	})
}

// parseSubmitRequest извлекает тип и сырой payload из тела запроса.
func parseSubmitRequest(body []byte) (domain.TaskType, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "", nil, errors.New("request body must be a JSON object")
	}

	var typeName string
	if err := json.Unmarshal(fields["type"], &typeName); err != nil || typeName == "" {
		return "", nil, errors.New("type is required")
	}

	if nested, ok := fields["payload"]; ok {
		return domain.TaskType(typeName), nested, nil
	}

	delete(fields, "type")
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", nil, err
	}
	return domain.TaskType(typeName), raw, nil
}

// isFormRequest проверяет, что тело закодировано как HTML-форма.
func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// parseSubmitForm собирает плоский payload из полей формы.
// Повторяющееся поле — берётся первое значение.
func parseSubmitForm(r *http.Request) (domain.TaskType, json.RawMessage, error) {
	if err := r.ParseForm(); err != nil {
		return "", nil, errors.New("invalid form body")
	}

	typeName := r.PostForm.Get("type")
	if typeName == "" {
		return "", nil, errors.New("type is required")
	}

	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if key == "type" || len(values) == 0 {
			continue
		}
		fields[key] = values[0]
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", nil, err
	}
	return domain.TaskType(typeName), raw, nil
}
