package collector

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCollector(results mq.Channel) *Collector {
	return New(Config{
		Results:       results,
		Wait:          10 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
		Logger:        testLogger(),
	})
}

func sendResult(t *testing.T, ch mq.Channel, result *domain.Result) {
	t.Helper()
	body, err := mq.EncodeResult(result)
	if err != nil {
		t.Fatalf("EncodeResult() error = %v", err)
	}
	if err := ch.Send(context.Background(), body); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func TestCollector_StoresResult(t *testing.T) {
	results := mq.NewMemoryChannel("results", time.Minute)
	c := newTestCollector(results)

	task := domain.NewTask(domain.TaskTypeCalculateInterest,
		domain.CalculateInterest{Principal: 1000, AnnualRate: 5, Days: 365})
	sendResult(t, results, domain.NewResult(task, domain.InterestAccrual{Interest: 50}))

	if err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if results.Len() != 0 {
		t.Errorf("result should be acked, Len() = %d", results.Len())
	}

	stored := c.Store().Snapshot()
	if len(stored) != 1 {
		t.Fatalf("stored %d results, want 1", len(stored))
	}
	if stored[0].TaskID != task.ID {
		t.Errorf("TaskID = %q, want %q", stored[0].TaskID, task.ID)
	}
	if stored[0].Outcome != (domain.InterestAccrual{Interest: 50}) {
		t.Errorf("outcome = %+v", stored[0].Outcome)
	}
}

func TestCollector_KeepsDuplicates(t *testing.T) {
	results := mq.NewMemoryChannel("results", time.Minute)
	c := newTestCollector(results)

	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 100, FromCurrency: "USD", ToCurrency: "EUR"})
	result := domain.NewResult(task, domain.CurrencyConversion{ConvertedAmount: 110})

	// Повторная доставка одного и того же результата
	sendResult(t, results, result)
	sendResult(t, results, result)

	for i := 0; i < 2; i++ {
		if err := c.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
	}

	if got := len(c.Store().ByTaskID(task.ID)); got != 2 {
		t.Errorf("ByTaskID() returned %d results, want 2", got)
	}
}

func TestCollector_DropsUndecodable(t *testing.T) {
	bodies := []string{
		`garbage`,
		`{"type":"convert_currency","result":{"convertedAmount":1}}`,
		`{"taskId":"x","type":"unknown_op","result":{}}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			results := mq.NewMemoryChannel("results", time.Minute)
			c := newTestCollector(results)
			results.Send(context.Background(), []byte(body))

			if err := c.RunOnce(context.Background()); err != nil {
				t.Fatalf("RunOnce() error = %v", err)
			}
			if results.Len() != 0 {
				t.Errorf("message should be acked, Len() = %d", results.Len())
			}
			if c.Store().Len() != 0 {
				t.Errorf("store Len() = %d, want 0", c.Store().Len())
			}
		})
	}
}

func TestCollector_StartStop(t *testing.T) {
	results := mq.NewMemoryChannel("results", time.Minute)
	c := newTestCollector(results)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 1, FromCurrency: "USD", ToCurrency: "EUR"})
	sendResult(t, results, domain.NewResult(task, domain.CurrencyConversion{ConvertedAmount: 1.1}))

	deadline := time.Now().Add(2 * time.Second)
	for c.Store().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	c.Stop()

	if c.Store().Len() != 1 {
		t.Errorf("store Len() = %d, want 1", c.Store().Len())
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Append(domain.Result{TaskID: "t", Type: domain.TaskTypeConvertCurrency})
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := s.Snapshot()
				for _, r := range snap {
					if r.TaskID != "t" {
						t.Errorf("partially written result: %+v", r)
						return
					}
				}
			}
		}()
	}

	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len() = %d, want 100", s.Len())
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Append(domain.Result{TaskID: "a"})

	snap := s.Snapshot()
	snap[0].TaskID = "changed"

	if s.Snapshot()[0].TaskID != "a" {
		t.Error("Snapshot() should return a copy")
	}
	if len(s.ByTaskID("missing")) != 0 {
		t.Error("ByTaskID(missing) should be empty")
	}
}
