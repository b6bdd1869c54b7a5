package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultVisibilityTimeout — аренда полученного сообщения по умолчанию.
const DefaultVisibilityTimeout = 30 * time.Second

// memoryPollStep — как часто Receive перепроверяет истёкшие аренды.
const memoryPollStep = 50 * time.Millisecond

// MemoryChannel — канал в памяти процесса с семантикой visibility timeout.
//
// Живёт только в рамках процесса; используется в тестах и в
// embedded-режиме, когда Submitter, Worker и Collector работают вместе.
type MemoryChannel struct {
	name       string
	visibility time.Duration
	now        func() time.Time

	mu       sync.Mutex
	ready    []*memoryMessage
	inflight map[string]*memoryMessage // receipt handle → сообщение
	notify   chan struct{}
}

type memoryMessage struct {
	id       string
	body     []byte
	deadline time.Time
	receives int
}

// NewMemoryChannel создаёт канал в памяти.
func NewMemoryChannel(name string, visibility time.Duration) *MemoryChannel {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &MemoryChannel{
		name:       name,
		visibility: visibility,
		now:        time.Now,
		inflight:   make(map[string]*memoryMessage),
		notify:     make(chan struct{}, 1),
	}
}

// Name возвращает имя канала.
func (c *MemoryChannel) Name() string {
	return c.name
}

// Send добавляет сообщение в конец очереди.
func (c *MemoryChannel) Send(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrChannel, c.name, err)
	}

	msg := &memoryMessage{
		id:   uuid.New().String(),
		body: append([]byte(nil), body...),
	}

	c.mu.Lock()
	c.ready = append(c.ready, msg)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Receive выдаёт одно сообщение, ожидая его не дольше wait.
func (c *MemoryChannel) Receive(ctx context.Context, wait time.Duration) ([]Message, error) {
	deadline := time.Now().Add(clampWait(wait))

	for {
		if msg, ok := c.lease(); ok {
			return []Message{msg}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		step := min(remaining, memoryPollStep)
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-c.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// lease возвращает истёкшие аренды в очередь и арендует первое сообщение.
func (c *MemoryChannel) lease() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for handle, msg := range c.inflight {
		if !now.Before(msg.deadline) {
			delete(c.inflight, handle)
			c.ready = append(c.ready, msg)
		}
	}

	if len(c.ready) == 0 {
		return Message{}, false
	}

	msg := c.ready[0]
	c.ready[0] = nil
	c.ready = c.ready[1:]

	msg.receives++
	msg.deadline = now.Add(c.visibility)
	handle := uuid.New().String()
	c.inflight[handle] = msg

	return Message{
		ID:            msg.id,
		Body:          append([]byte(nil), msg.body...),
		ReceiptHandle: handle,
		ReceiveCount:  msg.receives,
	}, true
}

// Delete подтверждает сообщение. Handle истёкшей аренды недействителен.
func (c *MemoryChannel) Delete(ctx context.Context, receiptHandle string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: delete from %s: %w", ErrChannel, c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.inflight[receiptHandle]
	if !ok || !c.now().Before(msg.deadline) {
		return fmt.Errorf("%w: %s", ErrUnknownReceipt, c.name)
	}
	delete(c.inflight, receiptHandle)
	return nil
}

// Len возвращает число сообщений в канале, включая арендованные.
func (c *MemoryChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready) + len(c.inflight)
}

// InFlight возвращает число арендованных, но не подтверждённых сообщений.
func (c *MemoryChannel) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
