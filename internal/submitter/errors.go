package submitter

import "errors"

// Ошибки отправителя.
var (
	// ErrTaskNotFound — задачи нет в локальном журнале.
	ErrTaskNotFound = errors.New("task not found")

	// ErrEmptyType — тип задачи не указан.
	ErrEmptyType = errors.New("task type is required")
)
