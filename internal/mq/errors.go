package mq

import "errors"

// Ошибки транспорта.
var (
	// ErrChannel — сбой канала при send / receive / delete.
	// Цикл обработки прерывается без подтверждения и повторяется
	// через фиксированный интервал.
	ErrChannel = errors.New("channel error")

	// ErrUnknownReceipt — ReceiptHandle недействителен: сообщение уже
	// удалено или аренда истекла и сообщение выдано повторно.
	ErrUnknownReceipt = errors.New("unknown receipt handle")

	// ErrDrop — обработчик решил отбросить сообщение. Оно подтверждается
	// без повторной доставки (poison message).
	ErrDrop = errors.New("message dropped")

	// ErrMalformed — тело сообщения не является корректным JSON-объектом
	// ожидаемой схемы.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownType — тип сообщения не соответствует ни одному
	// известному варианту.
	ErrUnknownType = errors.New("unknown message type")

	// ErrUnknownBackend — в конфигурации указан неподдерживаемый backend.
	ErrUnknownBackend = errors.New("unknown channel backend")
)
