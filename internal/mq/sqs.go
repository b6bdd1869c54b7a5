package mq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSOptions — параметры подключения к SQS.
type SQSOptions struct {
	Region string

	// Endpoint — нестандартный адрес (например, localstack). Пусто — AWS.
	Endpoint string

	// AccessKey / SecretKey — статические ключи. Если не заданы,
	// используется стандартная цепочка credentials.
	AccessKey string
	SecretKey string
}

// sqsAPI — подмножество *sqs.Client, которое использует SQSChannel.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// NewSQSClient создаёт клиент SQS.
func NewSQSClient(ctx context.Context, opts SQSOptions) (*sqs.Client, error) {
	configFuncs := make([]func(*config.LoadOptions) error, 0)
	configFuncs = append(configFuncs, config.WithRegion(opts.Region))

	if opts.AccessKey != "" && opts.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
		configFuncs = append(configFuncs, config.WithCredentialsProvider(creds))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, configFuncs...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sqs.NewFromConfig(awsConfig, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// SQSChannel — канал поверх очереди SQS.
//
// Visibility timeout задаётся атрибутами самой очереди.
type SQSChannel struct {
	client   sqsAPI
	queueURL string
	logger   *slog.Logger
}

// NewSQSChannel создаёт канал для очереди queueURL.
func NewSQSChannel(client sqsAPI, queueURL string, logger *slog.Logger) *SQSChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSChannel{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Name возвращает URL очереди.
func (c *SQSChannel) Name() string {
	return c.queueURL
}

// Send публикует сообщение.
func (c *SQSChannel) Send(ctx context.Context, body []byte) error {
	_, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrChannel, c.queueURL, err)
	}
	return nil
}

// Receive выполняет long-poll запрос одного сообщения.
func (c *SQSChannel) Receive(ctx context.Context, wait time.Duration) ([]Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(clampWait(wait) / time.Second),
		AttributeNames:      []types.QueueAttributeName{types.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: receive from %s: %w", ErrChannel, c.queueURL, err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		// Пустое тело не декодируется и будет отброшено обработчиком
		msg := Message{
			ID:            aws.ToString(m.MessageId),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		}
		if v, ok := m.Attributes["ApproximateReceiveCount"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				msg.ReceiveCount = n
			}
		}
		msgs = append(msgs, msg)

		c.logger.Debug("message received",
			"queue", c.queueURL,
			"message_id", msg.ID,
			"receive_count", msg.ReceiveCount,
		)
	}
	return msgs, nil
}

// Delete удаляет сообщение по receipt handle.
func (c *SQSChannel) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("%w: delete from %s: %w", ErrChannel, c.queueURL, err)
	}
	return nil
}
