package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrInvalidPayload — значения payload не прошли проверку.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrTypeMismatch — вариант payload не соответствует заявленному типу.
	ErrTypeMismatch = errors.New("payload does not match task type")
)
