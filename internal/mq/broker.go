package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredislib "github.com/redis/go-redis/v9"
)

// Поддерживаемые backend'ы каналов.
const (
	BackendSQS    = "sqs"
	BackendAMQP   = "amqp"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options — параметры подключения к брокеру.
type Options struct {
	// Backend — sqs, amqp, redis или memory.
	Backend string

	SQS     SQSOptions
	AMQPURL string
	Redis   RedisOptions

	// VisibilityTimeout — аренда сообщения для memory и redis.
	// Для SQS задаётся на очереди, для AMQP — временем жизни канала.
	VisibilityTimeout time.Duration
}

// Broker создаёт каналы одного backend'а и владеет общим соединением.
type Broker interface {
	// Channel возвращает канал с идентификатором name
	// (URL очереди SQS, имя очереди RabbitMQ, префикс ключей Redis).
	Channel(ctx context.Context, name string) (Channel, error)

	// Close освобождает соединение.
	Close() error
}

// Dial подключается к брокеру, выбранному в opts.Backend.
func Dial(ctx context.Context, opts Options, logger *slog.Logger) (Broker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendSQS:
		client, err := NewSQSClient(ctx, opts.SQS)
		if err != nil {
			return nil, err
		}
		return &sqsBroker{client: client, logger: logger}, nil

	case BackendAMQP:
		conn, err := NewConnection(opts.AMQPURL, logger)
		if err != nil {
			return nil, err
		}
		return &amqpBroker{conn: conn, logger: logger}, nil

	case BackendRedis:
		client := NewRedisClient(opts.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &redisBroker{
			client:     client,
			keyPrefix:  opts.Redis.KeyPrefix,
			visibility: opts.VisibilityTimeout,
			logger:     logger,
		}, nil

	case BackendMemory:
		return NewMemoryBroker(opts.VisibilityTimeout), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

type sqsBroker struct {
	client sqsAPI
	logger *slog.Logger
}

func (b *sqsBroker) Channel(_ context.Context, name string) (Channel, error) {
	return NewSQSChannel(b.client, name, b.logger), nil
}

func (b *sqsBroker) Close() error { return nil }

type amqpBroker struct {
	conn   *Connection
	logger *slog.Logger
}

func (b *amqpBroker) Channel(_ context.Context, name string) (Channel, error) {
	return NewAMQPChannel(b.conn, name, b.logger)
}

func (b *amqpBroker) Close() error { return b.conn.Close() }

type redisBroker struct {
	client     *goredislib.Client
	keyPrefix  string
	visibility time.Duration
	logger     *slog.Logger
}

func (b *redisBroker) Channel(_ context.Context, name string) (Channel, error) {
	return NewRedisChannel(b.client, b.keyPrefix, name, b.visibility, b.logger), nil
}

func (b *redisBroker) Close() error { return b.client.Close() }

// MemoryBroker выдаёт каналы в памяти; один и тот же name — один канал.
type MemoryBroker struct {
	visibility time.Duration

	mu       sync.Mutex
	channels map[string]*MemoryChannel
}

// NewMemoryBroker создаёт брокер каналов в памяти.
func NewMemoryBroker(visibility time.Duration) *MemoryBroker {
	return &MemoryBroker{
		visibility: visibility,
		channels:   make(map[string]*MemoryChannel),
	}
}

// Channel возвращает канал name, создавая его при первом обращении.
func (b *MemoryBroker) Channel(_ context.Context, name string) (Channel, error) {
	return b.Memory(name), nil
}

// Memory возвращает канал name с конкретным типом.
func (b *MemoryBroker) Memory(name string) *MemoryChannel {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[name]
	if !ok {
		ch = NewMemoryChannel(name, b.visibility)
		b.channels[name] = ch
	}
	return ch
}

// Close ничего не делает: каналы живут вместе с процессом.
func (b *MemoryBroker) Close() error { return nil }
