package mq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/Conveyor/internal/domain"
)

// DecodeError — ошибка декодирования тела сообщения.
//
// Kind — ErrMalformed или ErrUnknownType; errors.Is работает с обоими
// видами и с исходной причиной.
type DecodeError struct {
	Kind error
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func malformed(format string, args ...any) error {
	return &DecodeError{Kind: ErrMalformed, Err: fmt.Errorf(format, args...)}
}

// taskEnvelope — тело сообщения Task Channel.
type taskEnvelope struct {
	TaskID    string          `json:"taskId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// resultEnvelope — тело сообщения Result Channel.
type resultEnvelope struct {
	TaskID      string          `json:"taskId"`
	Type        string          `json:"type"`
	Result      json.RawMessage `json:"result"`
	ProcessedAt int64           `json:"processedAt,omitempty"`
}

// EncodeTask сериализует задачу в тело сообщения.
func EncodeTask(task *domain.Task) ([]byte, error) {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	body, err := json.Marshal(taskEnvelope{
		TaskID:    task.ID,
		Type:      string(task.Type),
		Payload:   payload,
		Timestamp: task.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return body, nil
}

// DecodeTask восстанавливает задачу из тела сообщения.
//
// Ошибки:
//   - ErrMalformed — тело не JSON-объект, нет taskId или payload
//     известного типа имеет поля неверного типа;
//   - ErrUnknownType — тип неизвестен. Задача всё равно возвращается,
//     payload сохранён как domain.Opaque.
func DecodeTask(body []byte) (*domain.Task, error) {
	var env taskEnvelope
	if err := unmarshalObject(body, &env); err != nil {
		return nil, err
	}
	if env.TaskID == "" {
		return nil, malformed("missing taskId")
	}

	task := &domain.Task{
		ID:        env.TaskID,
		CreatedAt: domain.FromUnixMilli(env.Timestamp),
	}

	taskType, known := domain.ParseTaskType(env.Type)
	task.Type = taskType
	if !known {
		task.Payload = domain.Opaque{Tag: taskType, Raw: env.Payload}
		return task, &DecodeError{Kind: ErrUnknownType, Err: fmt.Errorf("type %q", env.Type)}
	}

	if isAbsent(env.Payload) {
		return nil, malformed("missing payload for %s", taskType)
	}

	payload, err := decodePayload(taskType, env.Payload)
	if err != nil {
		return nil, malformed("payload for %s: %w", taskType, err)
	}
	task.Payload = payload

	return task, nil
}

// EncodeResult сериализует результат в тело сообщения.
func EncodeResult(result *domain.Result) ([]byte, error) {
	outcome, err := json.Marshal(result.Outcome)
	if err != nil {
		return nil, fmt.Errorf("marshal outcome: %w", err)
	}

	body, err := json.Marshal(resultEnvelope{
		TaskID:      result.TaskID,
		Type:        string(result.Type),
		Result:      outcome,
		ProcessedAt: result.ProcessedAt.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return body, nil
}

// DecodeResult восстанавливает результат из тела сообщения.
//
// processedAt читается из корня сообщения, а если его там нет — из
// объекта result (так его кладёт воркер первой версии системы).
func DecodeResult(body []byte) (*domain.Result, error) {
	var env resultEnvelope
	if err := unmarshalObject(body, &env); err != nil {
		return nil, err
	}
	if env.TaskID == "" {
		return nil, malformed("missing taskId")
	}

	processedAt := env.ProcessedAt
	if processedAt == 0 && !isAbsent(env.Result) {
		var nested struct {
			ProcessedAt int64 `json:"processedAt"`
		}
		if err := json.Unmarshal(env.Result, &nested); err == nil {
			processedAt = nested.ProcessedAt
		}
	}

	// Без processedAt время остаётся нулевым, а не началом эпохи
	result := &domain.Result{TaskID: env.TaskID}
	if processedAt != 0 {
		result.ProcessedAt = domain.FromUnixMilli(processedAt)
	}

	taskType, known := domain.ParseTaskType(env.Type)
	result.Type = taskType
	if !known {
		result.Outcome = domain.Opaque{Tag: taskType, Raw: env.Result}
		return result, &DecodeError{Kind: ErrUnknownType, Err: fmt.Errorf("type %q", env.Type)}
	}

	if isAbsent(env.Result) {
		return nil, malformed("missing result for %s", taskType)
	}

	outcome, err := decodeOutcome(taskType, env.Result)
	if err != nil {
		return nil, malformed("result for %s: %w", taskType, err)
	}
	result.Outcome = outcome

	return result, nil
}

// DecodePayload разбирает payload задачи по её типу.
//
// Для неизвестного типа возвращает domain.Opaque с исходными байтами.
// Числовые поля принимаются и строками.
func DecodePayload(taskType domain.TaskType, raw json.RawMessage) (domain.Payload, error) {
	taskType, known := domain.ParseTaskType(string(taskType))
	if !known {
		return domain.Opaque{Tag: taskType, Raw: raw}, nil
	}
	if isAbsent(raw) {
		return nil, fmt.Errorf("%w: missing payload for %s", domain.ErrInvalidPayload, taskType)
	}

	payload, err := decodePayload(taskType, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPayload, err)
	}
	return payload, nil
}

func decodePayload(taskType domain.TaskType, raw json.RawMessage) (domain.Payload, error) {
	switch taskType {
	case domain.TaskTypeConvertCurrency:
		var w struct {
			Amount       number `json:"amount"`
			FromCurrency string `json:"fromCurrency"`
			ToCurrency   string `json:"toCurrency"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return domain.ConvertCurrency{
			Amount:       float64(w.Amount),
			FromCurrency: w.FromCurrency,
			ToCurrency:   w.ToCurrency,
		}, nil

	case domain.TaskTypeCalculateInterest:
		var w struct {
			Principal  number `json:"principal"`
			AnnualRate number `json:"annualRate"`
			Days       number `json:"days"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return domain.CalculateInterest{
			Principal:  float64(w.Principal),
			AnnualRate: float64(w.AnnualRate),
			Days:       float64(w.Days),
		}, nil
	}

	return nil, fmt.Errorf("no payload variant for %s", taskType)
}

func decodeOutcome(taskType domain.TaskType, raw json.RawMessage) (domain.Outcome, error) {
	switch taskType {
	case domain.TaskTypeConvertCurrency:
		var w struct {
			ConvertedAmount number `json:"convertedAmount"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return domain.CurrencyConversion{ConvertedAmount: float64(w.ConvertedAmount)}, nil

	case domain.TaskTypeCalculateInterest:
		var w struct {
			Interest number `json:"interest"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return domain.InterestAccrual{Interest: float64(w.Interest)}, nil
	}

	return nil, fmt.Errorf("no outcome variant for %s", taskType)
}

// unmarshalObject разбирает тело, требуя JSON-объект на верхнем уровне.
func unmarshalObject(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return malformed("body is not a JSON object")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &DecodeError{Kind: ErrMalformed, Err: err}
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// number — число в payload. HTML-формы присылают числа строками,
// поэтому принимается и "100", и 100.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		*n = number(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}
