package domain

import "strings"

// TaskType — тег типа задачи. Определяет форму payload и обработчик в Worker'е.
type TaskType string

const (
	// TaskTypeConvertCurrency — конвертация суммы из одной валюты в другую.
	TaskTypeConvertCurrency TaskType = "convert_currency"

	// TaskTypeCalculateInterest — расчёт простых процентов за период.
	TaskTypeCalculateInterest TaskType = "calculate_interest"
)

// KnownTaskTypes — все типы, для которых существует вариант payload.
var KnownTaskTypes = []TaskType{
	TaskTypeConvertCurrency,
	TaskTypeCalculateInterest,
}

// ParseTaskType сопоставляет строку с известным тегом без учёта регистра.
// Для неизвестного тега возвращает исходную строку и false.
func ParseTaskType(s string) (TaskType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, t := range KnownTaskTypes {
		if string(t) == normalized {
			return t, true
		}
	}
	return TaskType(s), false
}

// IsKnown возвращает true, если тип входит в KnownTaskTypes.
func (t TaskType) IsKnown() bool {
	_, ok := ParseTaskType(string(t))
	return ok
}

// String возвращает строковое представление TaskType.
func (t TaskType) String() string {
	return string(t)
}

// TaskStatus — статус задачи с точки зрения отправителя.
//
// Жизненный цикл:
//
//	PENDING → COMPLETED
//
// Задача, для которой результат так и не пришёл (неизвестный тип,
// потерянное сообщение), навсегда остаётся в PENDING.
type TaskStatus string

const (
	// TaskStatusPending — задача отправлена, результата пока нет.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusCompleted — в Result Store есть хотя бы один результат.
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted
}
