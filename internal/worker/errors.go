package worker

import "errors"

// Ошибки воркера.
var (
	// ErrUnhandledType — нет executor'а для данного типа задачи.
	ErrUnhandledType = errors.New("unhandled task type")

	// ErrPayloadMismatch — executor получил payload чужого варианта.
	ErrPayloadMismatch = errors.New("payload does not match executor")

	// ErrNonFiniteOutcome — вычисление дало NaN или бесконечность.
	ErrNonFiniteOutcome = errors.New("outcome is not a finite number")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
