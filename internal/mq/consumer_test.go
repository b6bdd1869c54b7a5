package mq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyChannel оборачивает MemoryChannel и умеет отказывать в операциях.
type flakyChannel struct {
	*MemoryChannel
	failReceive atomic.Bool
	failDelete  atomic.Bool
	failSend    atomic.Bool
}

func (c *flakyChannel) Receive(ctx context.Context, wait time.Duration) ([]Message, error) {
	if c.failReceive.Load() {
		return nil, fmt.Errorf("%w: receive refused", ErrChannel)
	}
	return c.MemoryChannel.Receive(ctx, wait)
}

func (c *flakyChannel) Delete(ctx context.Context, handle string) error {
	if c.failDelete.Load() {
		return fmt.Errorf("%w: delete refused", ErrChannel)
	}
	return c.MemoryChannel.Delete(ctx, handle)
}

func (c *flakyChannel) Send(ctx context.Context, body []byte) error {
	if c.failSend.Load() {
		return fmt.Errorf("%w: send refused", ErrChannel)
	}
	return c.MemoryChannel.Send(ctx, body)
}

func newConsumer(ch Channel, dlq Channel, handler Handler) *Consumer {
	return NewConsumer(discardLogger(), ConsumerConfig{
		Name:          "test",
		Channel:       ch,
		Handler:       handler,
		DeadLetter:    dlq,
		Wait:          10 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
	})
}

func TestConsumer_AcksOnSuccess(t *testing.T) {
	ctx := context.Background()
	ch := NewMemoryChannel("in", time.Minute)
	ch.Send(ctx, []byte("hello"))

	var got []byte
	c := newConsumer(ch, nil, func(_ context.Context, msg *Message) error {
		got = msg.Body
		return nil
	})

	if err := c.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("handler got %q", got)
	}
	if ch.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (acked)", ch.Len())
	}
}

func TestConsumer_EmptyChannel(t *testing.T) {
	ch := NewMemoryChannel("in", time.Minute)

	called := false
	c := newConsumer(ch, nil, func(context.Context, *Message) error {
		called = true
		return nil
	})

	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if called {
		t.Error("handler should not be called without a message")
	}
}

func TestConsumer_DropAcksAndForwards(t *testing.T) {
	ctx := context.Background()
	ch := NewMemoryChannel("in", time.Minute)
	dlq := NewMemoryChannel("dlq", time.Minute)
	ch.Send(ctx, []byte("poison"))

	c := newConsumer(ch, dlq, func(context.Context, *Message) error {
		return fmt.Errorf("%w: bad body", ErrDrop)
	})

	if err := c.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if ch.Len() != 0 {
		t.Errorf("dropped message should be acked, Len() = %d", ch.Len())
	}

	msgs, _ := dlq.Receive(ctx, 0)
	if len(msgs) != 1 || string(msgs[0].Body) != "poison" {
		t.Errorf("dead-letter msgs = %+v", msgs)
	}
}

func TestConsumer_DropWithBrokenDeadLetter(t *testing.T) {
	ctx := context.Background()
	ch := NewMemoryChannel("in", time.Minute)
	dlq := &flakyChannel{MemoryChannel: NewMemoryChannel("dlq", time.Minute)}
	dlq.failSend.Store(true)
	ch.Send(ctx, []byte("poison"))

	c := newConsumer(ch, dlq, func(context.Context, *Message) error {
		return ErrDrop
	})

	if err := c.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if ch.Len() != 0 {
		t.Error("message should be acked even if dead-letter forwarding fails")
	}
}

func TestConsumer_RetryLeavesMessage(t *testing.T) {
	ctx := context.Background()
	ch := NewMemoryChannel("in", time.Minute)
	ch.Send(ctx, []byte("task"))

	handlerErr := errors.New("publish failed")
	c := newConsumer(ch, nil, func(context.Context, *Message) error {
		return handlerErr
	})

	err := c.RunOnce(ctx)
	if !errors.Is(err, handlerErr) {
		t.Fatalf("RunOnce() error = %v, want %v", err, handlerErr)
	}
	if ch.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1 (not acked)", ch.InFlight())
	}
}

func TestConsumer_ReceiveError(t *testing.T) {
	ch := &flakyChannel{MemoryChannel: NewMemoryChannel("in", time.Minute)}
	ch.failReceive.Store(true)

	c := newConsumer(ch, nil, func(context.Context, *Message) error { return nil })

	if err := c.RunOnce(context.Background()); !errors.Is(err, ErrChannel) {
		t.Errorf("RunOnce() error = %v, want ErrChannel", err)
	}
}

func TestConsumer_AckError(t *testing.T) {
	ctx := context.Background()
	ch := &flakyChannel{MemoryChannel: NewMemoryChannel("in", time.Minute)}
	ch.failDelete.Store(true)
	ch.Send(ctx, []byte("task"))

	c := newConsumer(ch, nil, func(context.Context, *Message) error { return nil })

	if err := c.RunOnce(ctx); !errors.Is(err, ErrChannel) {
		t.Errorf("RunOnce() error = %v, want ErrChannel", err)
	}
}

func TestConsumer_StartRecoversAfterErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := &flakyChannel{MemoryChannel: NewMemoryChannel("in", time.Minute)}
	ch.failReceive.Store(true)
	ch.MemoryChannel.Send(ctx, []byte("task"))

	handled := make(chan struct{}, 1)
	c := newConsumer(ch, nil, func(context.Context, *Message) error {
		handled <- struct{}{}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	// Несколько неудачных циклов, затем канал восстанавливается
	time.Sleep(30 * time.Millisecond)
	ch.failReceive.Store(false)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not handled after channel recovered")
	}

	c.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
