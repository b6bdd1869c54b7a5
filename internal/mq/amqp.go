package mq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpPollStep — пауза между basic.get при ожидании сообщения.
const amqpPollStep = 250 * time.Millisecond

// amqpAPI — операции AMQP-канала, которые использует AMQPChannel.
// *amqp.Channel удовлетворяет интерфейсу; тесты подставляют fake.
type amqpAPI interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
}

// amqpSession выдаёт текущий AMQP-канал и его поколение.
type amqpSession interface {
	session() (amqpAPI, uint64, error)
}

// AMQPChannel — канал поверх очереди RabbitMQ.
//
// Long-poll эмулируется повторными basic.get. Аренда сообщения длится,
// пока жив AMQP-канал: собственного visibility timeout у RabbitMQ нет,
// поэтому сообщение, оставленное для повторной доставки, возвращается
// в очередь через Release (basic.nack с requeue). При закрытии канала
// неподтверждённые сообщения брокер возвращает сам.
type AMQPChannel struct {
	conn   amqpSession
	queue  string
	logger *slog.Logger
}

// NewAMQPChannel объявляет очередь и создаёт канал.
func NewAMQPChannel(conn *Connection, queue string, logger *slog.Logger) (*AMQPChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ch, _, err := conn.current()
	if err != nil {
		return nil, err
	}
	if err := declareQueue(ch, queue); err != nil {
		return nil, err
	}

	return &AMQPChannel{
		conn:   conn,
		queue:  queue,
		logger: logger,
	}, nil
}

// Name возвращает имя очереди.
func (c *AMQPChannel) Name() string {
	return c.queue
}

// Send публикует persistent сообщение в очередь.
func (c *AMQPChannel) Send(ctx context.Context, body []byte) error {
	ch, _, err := c.conn.session()
	if err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrChannel, c.queue, err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",      // default exchange
		c.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
			MessageId:    uuid.New().String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrChannel, c.queue, err)
	}
	return nil
}

// Receive ждёт одно сообщение не дольше wait.
func (c *AMQPChannel) Receive(ctx context.Context, wait time.Duration) ([]Message, error) {
	deadline := time.Now().Add(clampWait(wait))

	for {
		ch, generation, err := c.conn.session()
		if err != nil {
			return nil, fmt.Errorf("%w: receive from %s: %w", ErrChannel, c.queue, err)
		}

		delivery, ok, err := ch.Get(c.queue, false)
		if err != nil {
			return nil, fmt.Errorf("%w: receive from %s: %w", ErrChannel, c.queue, err)
		}
		if ok {
			msg := Message{
				ID:            delivery.MessageId,
				Body:          delivery.Body,
				ReceiptHandle: formatDeliveryTag(generation, delivery.DeliveryTag),
				ReceiveCount:  1,
			}
			if delivery.Redelivered {
				msg.ReceiveCount = 2
			}
			c.logger.Debug("message received",
				"queue", c.queue,
				"message_id", msg.ID,
				"redelivered", delivery.Redelivered,
			)
			return []Message{msg}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(remaining, amqpPollStep)):
		}
	}
}

// Delete подтверждает сообщение (basic.ack).
func (c *AMQPChannel) Delete(_ context.Context, receiptHandle string) error {
	ch, tag, err := c.lease(receiptHandle, "delete")
	if err != nil {
		return err
	}

	if err := ch.Ack(tag, false); err != nil {
		return fmt.Errorf("%w: delete from %s: %w", ErrChannel, c.queue, err)
	}
	return nil
}

// Release возвращает сообщение в очередь (basic.nack, requeue=true).
// Повторная доставка придёт с флагом redelivered.
func (c *AMQPChannel) Release(_ context.Context, receiptHandle string) error {
	ch, tag, err := c.lease(receiptHandle, "release")
	if err != nil {
		return err
	}

	if err := ch.Nack(tag, false, true); err != nil {
		return fmt.Errorf("%w: release to %s: %w", ErrChannel, c.queue, err)
	}
	c.logger.Debug("message released", "queue", c.queue, "handle", receiptHandle)
	return nil
}

// lease проверяет, что receipt handle выдан текущим AMQP-каналом.
func (c *AMQPChannel) lease(receiptHandle, op string) (amqpAPI, uint64, error) {
	generation, tag, err := parseDeliveryTag(receiptHandle)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrUnknownReceipt, c.queue, err)
	}

	ch, current, err := c.conn.session()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s %s: %w", ErrChannel, op, c.queue, err)
	}
	if generation != current {
		// Канал пересоздан — сообщение уже вернулось в очередь
		c.logger.Warn("stale receipt handle", "queue", c.queue, "handle", receiptHandle)
		return nil, 0, fmt.Errorf("%w: %s: stale channel", ErrUnknownReceipt, c.queue)
	}
	return ch, tag, nil
}

// formatDeliveryTag кодирует delivery tag вместе с поколением канала.
func formatDeliveryTag(generation, tag uint64) string {
	return strconv.FormatUint(generation, 10) + ":" + strconv.FormatUint(tag, 10)
}

func parseDeliveryTag(handle string) (uint64, uint64, error) {
	genStr, tagStr, ok := strings.Cut(handle, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed handle %q", handle)
	}
	generation, err := strconv.ParseUint(genStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse generation: %w", err)
	}
	tag, err := strconv.ParseUint(tagStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse delivery tag: %w", err)
	}
	return generation, tag, nil
}
