package worker

import (
	"context"
	"fmt"
	"math"

	"github.com/shaiso/Conveyor/internal/domain"
)

// DefaultConversionRate — фиксированный курс конвертации валют.
// Курс не запрашивается у внешнего источника.
const DefaultConversionRate = 1.1

// Executor — интерфейс для выполнения конкретного типа задачи.
//
// Реализации: CurrencyExecutor, InterestExecutor.
// Executor'ы — чистые функции: одинаковый payload даёт одинаковый outcome.
type Executor interface {
	Execute(ctx context.Context, task *domain.Task) (domain.Outcome, error)
}

// ExecutorFunc позволяет использовать функцию как Executor.
type ExecutorFunc func(ctx context.Context, task *domain.Task) (domain.Outcome, error)

// Execute вызывает f.
func (f ExecutorFunc) Execute(ctx context.Context, task *domain.Task) (domain.Outcome, error) {
	return f(ctx, task)
}

// Registry — реестр executor'ов по типу задачи.
type Registry struct {
	executors map[domain.TaskType]Executor
}

// NewRegistry создаёт реестр с зарегистрированными executor'ами по умолчанию.
//
// Регистрирует: convert_currency (с курсом rate), calculate_interest.
func NewRegistry(rate float64) *Registry {
	if rate <= 0 {
		rate = DefaultConversionRate
	}

	r := &Registry{executors: make(map[domain.TaskType]Executor)}
	r.Register(domain.TaskTypeConvertCurrency, &CurrencyExecutor{Rate: rate})
	r.Register(domain.TaskTypeCalculateInterest, &InterestExecutor{})
	return r
}

// Register добавляет executor для типа задачи.
func (r *Registry) Register(taskType domain.TaskType, executor Executor) {
	r.executors[taskType] = executor
}

// Get возвращает executor для типа задачи. Тип сравнивается без учёта регистра.
func (r *Registry) Get(taskType domain.TaskType) (Executor, error) {
	canonical, _ := domain.ParseTaskType(string(taskType))
	executor, ok := r.executors[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledType, taskType)
	}
	return executor, nil
}

// CurrencyExecutor — executor для convert_currency.
//
// convertedAmount = amount × Rate
type CurrencyExecutor struct {
	Rate float64
}

// Execute конвертирует сумму по фиксированному курсу.
func (e *CurrencyExecutor) Execute(_ context.Context, task *domain.Task) (domain.Outcome, error) {
	p, ok := task.Payload.(domain.ConvertCurrency)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, task.Payload, task.Type)
	}

	converted := p.Amount * e.Rate
	if !isFinite(converted) {
		return nil, ErrNonFiniteOutcome
	}
	return domain.CurrencyConversion{ConvertedAmount: converted}, nil
}

// InterestExecutor — executor для calculate_interest.
//
// interest = principal × (annualRate / 100) × (days / 365)
type InterestExecutor struct{}

// Execute считает простые проценты за период.
func (e *InterestExecutor) Execute(_ context.Context, task *domain.Task) (domain.Outcome, error) {
	p, ok := task.Payload.(domain.CalculateInterest)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, task.Payload, task.Type)
	}

	interest := p.Principal * (p.AnnualRate / 100) * (p.Days / 365)
	if !isFinite(interest) {
		return nil, ErrNonFiniteOutcome
	}
	return domain.InterestAccrual{Interest: interest}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
