package worker

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

const epsilon = 1e-9

func TestCurrencyExecutor(t *testing.T) {
	executor := &CurrencyExecutor{Rate: DefaultConversionRate}
	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 100, FromCurrency: "USD", ToCurrency: "EUR"})

	outcome, err := executor.Execute(context.Background(), task)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	conv, ok := outcome.(domain.CurrencyConversion)
	if !ok {
		t.Fatalf("outcome = %T, want CurrencyConversion", outcome)
	}
	if math.Abs(conv.ConvertedAmount-110) > epsilon {
		t.Errorf("convertedAmount = %v, want 110", conv.ConvertedAmount)
	}
}

func TestInterestExecutor(t *testing.T) {
	tests := []struct {
		name    string
		payload domain.CalculateInterest
		want    float64
	}{
		{"one year", domain.CalculateInterest{Principal: 1000, AnnualRate: 5, Days: 365}, 50},
		{"half year", domain.CalculateInterest{Principal: 2000, AnnualRate: 10, Days: 182.5}, 100},
		{"zero days", domain.CalculateInterest{Principal: 1000, AnnualRate: 5, Days: 0}, 0},
	}

	executor := &InterestExecutor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := domain.NewTask(domain.TaskTypeCalculateInterest, tt.payload)

			outcome, err := executor.Execute(context.Background(), task)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			got := outcome.(domain.InterestAccrual).Interest
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("interest = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecutors_Idempotent(t *testing.T) {
	registry := NewRegistry(0)
	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: 42.5, FromCurrency: "USD", ToCurrency: "EUR"})

	executor, err := registry.Get(task.Type)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	first, _ := executor.Execute(context.Background(), task)
	second, _ := executor.Execute(context.Background(), task)
	if first != second {
		t.Errorf("outcomes differ: %+v vs %+v", first, second)
	}
}

func TestExecutor_PayloadMismatch(t *testing.T) {
	task := &domain.Task{
		ID:      "x",
		Type:    domain.TaskTypeConvertCurrency,
		Payload: domain.CalculateInterest{Principal: 1, AnnualRate: 1, Days: 1},
	}

	_, err := (&CurrencyExecutor{Rate: 1.1}).Execute(context.Background(), task)
	if !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("Execute() error = %v, want ErrPayloadMismatch", err)
	}
}

func TestExecutor_NonFinite(t *testing.T) {
	task := domain.NewTask(domain.TaskTypeConvertCurrency,
		domain.ConvertCurrency{Amount: math.MaxFloat64, FromCurrency: "USD", ToCurrency: "EUR"})

	_, err := (&CurrencyExecutor{Rate: 10}).Execute(context.Background(), task)
	if !errors.Is(err, ErrNonFiniteOutcome) {
		t.Errorf("Execute() error = %v, want ErrNonFiniteOutcome", err)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(-1)

	// Некорректный курс заменяется значением по умолчанию
	executor, err := registry.Get(domain.TaskTypeConvertCurrency)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if executor.(*CurrencyExecutor).Rate != DefaultConversionRate {
		t.Errorf("rate = %v, want %v", executor.(*CurrencyExecutor).Rate, DefaultConversionRate)
	}

	if _, err := registry.Get("CALCULATE_INTEREST"); err != nil {
		t.Errorf("Get() should ignore case, error = %v", err)
	}

	if _, err := registry.Get("unknown_op"); !errors.Is(err, ErrUnhandledType) {
		t.Errorf("Get(unknown) error = %v, want ErrUnhandledType", err)
	}

	registry.Register("custom", ExecutorFunc(func(context.Context, *domain.Task) (domain.Outcome, error) {
		return domain.Opaque{Tag: "custom"}, nil
	}))
	if _, err := registry.Get("custom"); err != nil {
		t.Errorf("Get(custom) error = %v", err)
	}
}
