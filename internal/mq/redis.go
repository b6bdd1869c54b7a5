package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredislib "github.com/redis/go-redis/v9"
)

// redisPollStep — пауза между попытками аренды при ожидании сообщения.
const redisPollStep = 200 * time.Millisecond

// RedisOptions — параметры подключения к Redis.
type RedisOptions struct {
	Address   string
	Password  string
	KeyPrefix string
}

// NewRedisClient создаёт клиент Redis.
func NewRedisClient(options RedisOptions) *goredislib.Client {
	return goredislib.NewClient(&goredislib.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       0,
	})
}

// Структура ключей одного канала:
//
//	{prefix}-{name}-ready     LIST  id сообщений, ожидающих получателя
//	{prefix}-{name}-inflight  ZSET  receipt handle → deadline аренды (unix ms)
//	{prefix}-{name}-bodies    HASH  id → тело сообщения
//	{prefix}-{name}-receives  HASH  id → число выдач
//
// Receipt handle имеет вид "{id}.{token}", token новый при каждой аренде.

// leaseScript возвращает истёкшие аренды в очередь и арендует одно сообщение.
//
// KEYS: ready, inflight, bodies, receives
// ARGV: now_ms, deadline_ms, token
var leaseScript = goredislib.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, handle in ipairs(expired) do
	redis.call('ZREM', KEYS[2], handle)
	local id = string.match(handle, '^(.*)%.[^.]*$')
	redis.call('RPUSH', KEYS[1], id)
end

local id = redis.call('RPOP', KEYS[1])
if not id then
	return false
end

local body = redis.call('HGET', KEYS[3], id)
if not body then
	return false
end

local handle = id .. '.' .. ARGV[3]
redis.call('ZADD', KEYS[2], ARGV[2], handle)
local receives = redis.call('HINCRBY', KEYS[4], id, 1)
return {id, body, handle, receives}
`)

// ackScript удаляет сообщение, если аренда handle ещё действительна.
//
// KEYS: inflight, bodies, receives
// ARGV: handle, id, now_ms
var ackScript = goredislib.NewScript(`
local deadline = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not deadline or tonumber(deadline) <= tonumber(ARGV[3]) then
	return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[2])
redis.call('HDEL', KEYS[3], ARGV[2])
return 1
`)

// RedisChannel — канал поверх Redis с visibility timeout.
type RedisChannel struct {
	client     *goredislib.Client
	name       string
	keyPrefix  string
	visibility time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewRedisChannel создаёт канал name.
func NewRedisChannel(client *goredislib.Client, keyPrefix, name string, visibility time.Duration, logger *slog.Logger) *RedisChannel {
	if logger == nil {
		logger = slog.Default()
	}
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &RedisChannel{
		client:     client,
		name:       name,
		keyPrefix:  keyPrefix,
		visibility: visibility,
		logger:     logger,
		now:        time.Now,
	}
}

// Name возвращает имя канала.
func (c *RedisChannel) Name() string {
	return c.name
}

// Key возвращает полный ключ Redis для части канала.
func (c *RedisChannel) Key(part string) string {
	return fmt.Sprintf("%s-%s-%s", c.keyPrefix, c.name, part)
}

// Send сохраняет тело и ставит id в очередь одной транзакцией.
func (c *RedisChannel) Send(ctx context.Context, body []byte) error {
	id := uuid.New().String()

	_, err := c.client.TxPipelined(ctx, func(pipe goredislib.Pipeliner) error {
		pipe.HSet(ctx, c.Key("bodies"), id, body)
		pipe.LPush(ctx, c.Key("ready"), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrChannel, c.name, err)
	}
	return nil
}

// Receive арендует одно сообщение, ожидая его не дольше wait.
func (c *RedisChannel) Receive(ctx context.Context, wait time.Duration) ([]Message, error) {
	deadline := time.Now().Add(clampWait(wait))

	for {
		msg, ok, err := c.lease(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: receive from %s: %w", ErrChannel, c.name, err)
		}
		if ok {
			c.logger.Debug("message leased",
				"channel", c.name,
				"message_id", msg.ID,
				"receive_count", msg.ReceiveCount,
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
		case <-time.After(min(remaining, redisPollStep)):
		}
	}
}

func (c *RedisChannel) lease(ctx context.Context) (Message, bool, error) {
	now := c.now()
	keys := []string{c.Key("ready"), c.Key("inflight"), c.Key("bodies"), c.Key("receives")}

	res, err := leaseScript.Run(ctx, c.client, keys,
		now.UnixMilli(),
		now.Add(c.visibility).UnixMilli(),
		strings.ReplaceAll(uuid.New().String(), "-", ""),
	).Slice()
	if errors.Is(err, goredislib.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	if len(res) != 4 {
		return Message{}, false, fmt.Errorf("unexpected lease reply of %d elements", len(res))
	}

	id, _ := res[0].(string)
	body, _ := res[1].(string)
	handle, _ := res[2].(string)
	receives, _ := res[3].(int64)

	return Message{
		ID:            id,
		Body:          []byte(body),
		ReceiptHandle: handle,
		ReceiveCount:  int(receives),
	}, true, nil
}

// Delete подтверждает сообщение, если его аренда ещё действительна.
func (c *RedisChannel) Delete(ctx context.Context, receiptHandle string) error {
	dot := strings.LastIndexByte(receiptHandle, '.')
	if dot <= 0 {
		return fmt.Errorf("%w: %s: malformed handle", ErrUnknownReceipt, c.name)
	}
	id := receiptHandle[:dot]

	keys := []string{c.Key("inflight"), c.Key("bodies"), c.Key("receives")}
	deleted, err := ackScript.Run(ctx, c.client, keys,
		receiptHandle,
		id,
		strconv.FormatInt(c.now().UnixMilli(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: delete from %s: %w", ErrChannel, c.name, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownReceipt, c.name)
	}
	return nil
}
