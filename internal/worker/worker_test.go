package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
)

// unavailableChannel — Result Channel, который отклоняет отправку.
type unavailableChannel struct {
	*mq.MemoryChannel
	down atomic.Bool
}

func (c *unavailableChannel) Send(ctx context.Context, body []byte) error {
	if c.down.Load() {
		return fmt.Errorf("%w: broker unavailable", mq.ErrChannel)
	}
	return c.MemoryChannel.Send(ctx, body)
}

type fixture struct {
	tasks   *mq.MemoryChannel
	results *mq.MemoryChannel
	dlq     *mq.MemoryChannel
	worker  *Worker
}

func newFixture(t *testing.T, results mq.Channel) *fixture {
	t.Helper()

	f := &fixture{
		tasks: mq.NewMemoryChannel("tasks", time.Minute),
		dlq:   mq.NewMemoryChannel("dlq", time.Minute),
	}
	if results == nil {
		f.results = mq.NewMemoryChannel("results", time.Minute)
		results = f.results
	}

	f.worker = New(Config{
		Tasks:         f.tasks,
		Results:       results,
		DeadLetter:    f.dlq,
		Wait:          10 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) sendTask(t *testing.T, task *domain.Task) {
	t.Helper()
	body, err := mq.EncodeTask(task)
	if err != nil {
		t.Fatalf("EncodeTask() error = %v", err)
	}
	if err := f.tasks.Send(context.Background(), body); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func receiveResult(t *testing.T, ch mq.Channel) *domain.Result {
	t.Helper()
	msgs, err := ch.Receive(context.Background(), 0)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d results, want 1", len(msgs))
	}
	result, err := mq.DecodeResult(msgs[0].Body)
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}
	return result
}

func TestWorker_ProcessesTask(t *testing.T) {
	f := newFixture(t, nil)
	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 100, FromCurrency: "USD", ToCurrency: "EUR"})
	f.sendTask(t, task)

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	// Задача подтверждена, результат опубликован
	if f.tasks.Len() != 0 {
		t.Errorf("tasks Len() = %d, want 0", f.tasks.Len())
	}

	result := receiveResult(t, f.results)
	if result.TaskID != task.ID {
		t.Errorf("TaskID = %q, want %q", result.TaskID, task.ID)
	}
	if result.Type != domain.TaskTypeConvertCurrency {
		t.Errorf("Type = %q", result.Type)
	}
	conv := result.Outcome.(domain.CurrencyConversion)
	if conv.ConvertedAmount < 109.999 || conv.ConvertedAmount > 110.001 {
		t.Errorf("convertedAmount = %v, want 110", conv.ConvertedAmount)
	}
	if result.ProcessedAt.Before(task.CreatedAt) {
		t.Errorf("ProcessedAt %v before CreatedAt %v", result.ProcessedAt, task.CreatedAt)
	}
}

func TestWorker_CustomConversionRate(t *testing.T) {
	tasks := mq.NewMemoryChannel("tasks", time.Minute)
	results := mq.NewMemoryChannel("results", time.Minute)
	w := New(Config{
		Tasks:          tasks,
		Results:        results,
		ConversionRate: 2,
		Wait:           10 * time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	body, _ := mq.EncodeTask(domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 10, FromCurrency: "USD", ToCurrency: "EUR"}))
	tasks.Send(context.Background(), body)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	result := receiveResult(t, results)
	if got := result.Outcome.(domain.CurrencyConversion).ConvertedAmount; got != 20 {
		t.Errorf("convertedAmount = %v, want 20", got)
	}
}

func TestWorker_UnknownTypeDropped(t *testing.T) {
	f := newFixture(t, nil)
	f.tasks.Send(context.Background(),
		[]byte(`{"taskId":"u-1","type":"unknown_op","payload":{},"timestamp":1}`))

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if f.tasks.Len() != 0 {
		t.Errorf("unknown task should be acked, tasks Len() = %d", f.tasks.Len())
	}
	if f.results.Len() != 0 {
		t.Errorf("no result expected, results Len() = %d", f.results.Len())
	}
	if f.dlq.Len() != 1 {
		t.Errorf("dlq Len() = %d, want 1", f.dlq.Len())
	}
}

func TestWorker_MalformedDropped(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"type":"convert_currency","payload":{"amount":1,"fromCurrency":"A","toCurrency":"B"}}`,
		`{"taskId":"x","type":"convert_currency","payload":{"amount":"abc"}}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			f := newFixture(t, nil)
			f.tasks.Send(context.Background(), []byte(body))

			if err := f.worker.RunOnce(context.Background()); err != nil {
				t.Fatalf("RunOnce() error = %v", err)
			}
			if f.tasks.Len() != 0 {
				t.Errorf("malformed task should be acked, tasks Len() = %d", f.tasks.Len())
			}
			if f.results.Len() != 0 {
				t.Errorf("no result expected, results Len() = %d", f.results.Len())
			}
		})
	}
}

func TestWorker_ComputesPayloadRejectedAtSubmit(t *testing.T) {
	f := newFixture(t, nil)
	// Отрицательный период отклоняется при отправке, но воркер
	// считает то, что пришло в канал
	f.sendTask(t, &domain.Task{
		ID:        "neg",
		Type:      domain.TaskTypeCalculateInterest,
		Payload:   domain.CalculateInterest{Principal: 1000, AnnualRate: 5, Days: -365},
		CreatedAt: domain.Now(),
	})

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if f.tasks.Len() != 0 {
		t.Errorf("tasks Len() = %d, want 0", f.tasks.Len())
	}

	result := receiveResult(t, f.results)
	accrual := result.Outcome.(domain.InterestAccrual)
	if accrual.Interest > -49.999 || accrual.Interest < -50.001 {
		t.Errorf("interest = %v, want -50", accrual.Interest)
	}
}

func TestWorker_NonFiniteDropped(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"taskId":"nan","type":"convert_currency","payload":{"amount":"NaN","fromCurrency":"USD","toCurrency":"EUR"},"timestamp":1700000000000}`
	f.tasks.Send(context.Background(), []byte(body))

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if f.tasks.Len() != 0 || f.results.Len() != 0 {
		t.Errorf("tasks=%d results=%d, want 0/0", f.tasks.Len(), f.results.Len())
	}
	if f.dlq.Len() != 1 {
		t.Errorf("dlq Len() = %d, want 1", f.dlq.Len())
	}
}

func TestWorker_PublishFailureLeavesTask(t *testing.T) {
	results := &unavailableChannel{MemoryChannel: mq.NewMemoryChannel("results", time.Minute)}
	results.down.Store(true)

	f := newFixture(t, results)
	task := domain.NewTask(domain.TaskTypeCalculateInterest,
		domain.CalculateInterest{Principal: 1000, AnnualRate: 5, Days: 365})
	f.sendTask(t, task)

	err := f.worker.RunOnce(context.Background())
	if !errors.Is(err, mq.ErrChannel) {
		t.Fatalf("RunOnce() error = %v, want ErrChannel", err)
	}

	// Задача не подтверждена и остаётся арендованной до истечения таймаута
	if f.tasks.InFlight() != 1 {
		t.Errorf("tasks InFlight() = %d, want 1", f.tasks.InFlight())
	}
	if results.Len() != 0 {
		t.Errorf("results Len() = %d, want 0", results.Len())
	}
	if f.dlq.Len() != 0 {
		t.Errorf("dlq Len() = %d, want 0", f.dlq.Len())
	}
}

func TestWorker_StartStop(t *testing.T) {
	f := newFixture(t, nil)
	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 1, FromCurrency: "USD", ToCurrency: "EUR"})
	f.sendTask(t, task)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.results.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f.worker.Stop()

	if f.results.Len() != 1 {
		t.Errorf("results Len() = %d, want 1", f.results.Len())
	}
	if !f.worker.IsStopped() {
		t.Error("IsStopped() = false after Stop()")
	}
	if err := f.worker.Start(ctx); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("Start() after Stop() error = %v, want ErrWorkerStopped", err)
	}
}
