package mq

import (
	"context"
	"time"
)

// MaxWait — верхняя граница long-poll ожидания (совпадает с лимитом SQS).
const MaxWait = 20 * time.Second

// Message — сообщение, полученное из канала.
type Message struct {
	// ID — идентификатор сообщения, назначенный каналом.
	ID string

	// Body — сериализованный Task или Result.
	Body []byte

	// ReceiptHandle — токен подтверждения. Действителен только пока
	// сообщение арендовано (до истечения visibility timeout).
	ReceiptHandle string

	// ReceiveCount — сколько раз сообщение выдавалось получателям.
	// 0 — канал не сообщает это значение.
	ReceiveCount int
}

// Channel — долговременная очередь с доставкой at-least-once.
//
// Receive выдаёт не более одного сообщения и ждёт не дольше wait.
// Полученное сообщение скрыто от других получателей до истечения
// visibility timeout; Delete с его ReceiptHandle завершает потребление.
type Channel interface {
	// Name возвращает идентификатор канала (URL очереди, имя, ключ).
	Name() string

	// Send публикует сообщение.
	Send(ctx context.Context, body []byte) error

	// Receive ждёт сообщение не дольше wait.
	// Пустой срез без ошибки означает, что сообщений нет.
	Receive(ctx context.Context, wait time.Duration) ([]Message, error)

	// Delete подтверждает сообщение и удаляет его из канала.
	Delete(ctx context.Context, receiptHandle string) error
}

// clampWait ограничивает ожидание диапазоном [0, MaxWait].
func clampWait(wait time.Duration) time.Duration {
	if wait < 0 {
		return 0
	}
	if wait > MaxWait {
		return MaxWait
	}
	return wait
}

// Releaser — канал, умеющий вернуть арендованное сообщение в очередь
// до истечения аренды.
//
// Нужен backend'ам, у которых нет собственного visibility timeout:
// в RabbitMQ неподтверждённое сообщение висит на AMQP-канале, пока тот
// жив. Consumer вызывает Release, когда сообщение оставлено для
// повторной доставки.
type Releaser interface {
	Release(ctx context.Context, receiptHandle string) error
}
