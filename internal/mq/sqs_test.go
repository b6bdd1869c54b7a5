package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// fakeSQS — минимальная реализация sqsAPI.
type fakeSQS struct {
	sent     []string
	deleted  []string
	messages []types.Message
	err      error

	lastReceive *sqs.ReceiveMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.lastReceive = in
	if f.err != nil {
		return nil, f.err
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSChannel_Send(t *testing.T) {
	api := &fakeSQS{}
	ch := NewSQSChannel(api, "https://sqs.local/tasks", discardLogger())

	if err := ch.Send(context.Background(), []byte(`{"taskId":"x"}`)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(api.sent) != 1 || api.sent[0] != `{"taskId":"x"}` {
		t.Errorf("sent = %v", api.sent)
	}
	if ch.Name() != "https://sqs.local/tasks" {
		t.Errorf("Name() = %q", ch.Name())
	}
}

func TestSQSChannel_Receive(t *testing.T) {
	api := &fakeSQS{
		messages: []types.Message{{
			MessageId:     aws.String("m-1"),
			Body:          aws.String("body"),
			ReceiptHandle: aws.String("rh-1"),
			Attributes:    map[string]string{"ApproximateReceiveCount": "3"},
		}},
	}
	ch := NewSQSChannel(api, "q", discardLogger())

	msgs, err := ch.Receive(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	// Ожидание ограничено 20 секундами, не больше одного сообщения
	if api.lastReceive.WaitTimeSeconds != 20 {
		t.Errorf("WaitTimeSeconds = %d, want 20", api.lastReceive.WaitTimeSeconds)
	}
	if api.lastReceive.MaxNumberOfMessages != 1 {
		t.Errorf("MaxNumberOfMessages = %d, want 1", api.lastReceive.MaxNumberOfMessages)
	}

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.ID != "m-1" || string(m.Body) != "body" || m.ReceiptHandle != "rh-1" {
		t.Errorf("message = %+v", m)
	}
	if m.ReceiveCount != 3 {
		t.Errorf("ReceiveCount = %d, want 3", m.ReceiveCount)
	}

	if err := ch.Delete(context.Background(), m.ReceiptHandle); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "rh-1" {
		t.Errorf("deleted = %v", api.deleted)
	}
}

func TestSQSChannel_ErrorsWrapped(t *testing.T) {
	api := &fakeSQS{err: errors.New("throttled")}
	ch := NewSQSChannel(api, "q", discardLogger())
	ctx := context.Background()

	if err := ch.Send(ctx, []byte("x")); !errors.Is(err, ErrChannel) {
		t.Errorf("Send() error = %v, want ErrChannel", err)
	}
	if _, err := ch.Receive(ctx, time.Second); !errors.Is(err, ErrChannel) {
		t.Errorf("Receive() error = %v, want ErrChannel", err)
	}
	if err := ch.Delete(ctx, "rh"); !errors.Is(err, ErrChannel) {
		t.Errorf("Delete() error = %v, want ErrChannel", err)
	}
}
