package mq

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxReconnectDelay — верхняя граница задержки между попытками reconnect.
const maxReconnectDelay = 30 * time.Second

// Connection — обёртка над AMQP соединением с автоматическим reconnect.
//
// Все AMQPChannel одного процесса делят одно соединение и один AMQP-канал.
// После переподключения delivery tag'и старого канала недействительны:
// неподтверждённые сообщения RabbitMQ выдаст повторно.
type Connection struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	// generation увеличивается при каждом переподключении.
	generation uint64

	closed   bool
	closedCh chan struct{}
}

// NewConnection создаёт новое соединение с RabbitMQ.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		url:      url,
		logger:   logger,
		closedCh: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watchConnection()

	return c, nil
}

// connect устанавливает соединение и открывает канал.
func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.generation++
	c.mu.Unlock()

	c.logger.Info("connected to RabbitMQ")
	return nil
}

// watchConnection следит за соединением и AMQP-каналом.
//
// Брокер может закрыть только канал (например, по истечении
// consumer_timeout для неподтверждённой доставки), оставив соединение
// открытым. Тогда канал открывается заново на том же соединении.
func (c *Connection) watchConnection() {
	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		conn, ch := c.conn, c.channel
		c.mu.RUnlock()

		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-connClosed:
			if err != nil {
				c.logger.Warn("connection closed", "error", err)
			}
			c.reconnect()
		case err := <-chClosed:
			if err != nil {
				c.logger.Warn("channel closed", "error", err)
			}
			if conn.IsClosed() {
				c.reconnect()
				continue
			}
			if err := c.reopenChannel(conn); err != nil {
				c.logger.Warn("reopen channel failed", "error", err)
				conn.Close()
				c.reconnect()
			}
		}
	}
}

// reopenChannel открывает новый AMQP-канал на живом соединении.
// Поколение увеличивается: receipt handle'ы старого канала недействительны.
func (c *Connection) reopenChannel(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch.Close()
		return nil
	}
	c.channel = ch
	c.generation++

	c.logger.Info("channel reopened", "generation", c.generation)
	return nil
}

// reconnect пытается переподключиться с экспоненциальной задержкой.
func (c *Connection) reconnect() {
	delay := time.Second

	for {
		select {
		case <-c.closedCh:
			return
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.logger.Warn("reconnect failed", "error", err, "delay", delay)
			delay = min(delay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")
		return
	}
}

// current возвращает текущий AMQP канал и его поколение.
func (c *Connection) current() (*amqp.Channel, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, 0, fmt.Errorf("connection closed")
	}
	if c.channel == nil || c.channel.IsClosed() {
		return nil, 0, fmt.Errorf("no channel available")
	}
	return c.channel, c.generation, nil
}

// session возвращает текущий канал для AMQPChannel.
func (c *Connection) session() (amqpAPI, uint64, error) {
	ch, generation, err := c.current()
	if err != nil {
		return nil, 0, err
	}
	return ch, generation, nil
}

// Close закрывает соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.closedCh)

	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}

	c.logger.Info("connection closed")
	return nil
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return false
	}

	return !c.conn.IsClosed()
}
