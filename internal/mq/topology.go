package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// declareQueue создаёт durable очередь, если её ещё нет.
//
// Сообщения публикуются через default exchange с routing key = имя
// очереди, поэтому отдельные exchanges и bindings не нужны.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(tasks, results, dlq string) string {
	if dlq == "" {
		dlq = "(disabled)"
	}
	return fmt.Sprintf(`
  Conveyor RabbitMQ Topology (default exchange):

    %s
        Producer: Submitter   Consumer: Worker
    %s
        Producer: Worker      Consumer: Collector
    %s
        Dropped messages, manual processing
`, tasks, results, dlq)
}
