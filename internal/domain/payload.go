package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Payload — входные данные задачи. Закрытое объединение: реализуется
// только типами этого пакета, форма определяется TaskType.
type Payload interface {
	// Type возвращает тег, которому соответствует вариант.
	Type() TaskType

	// Validate проверяет значения полей.
	Validate() error

	isPayload()
}

// Outcome — результат выполнения задачи. Вариант соответствует TaskType.
type Outcome interface {
	Type() TaskType
	isOutcome()
}

// ConvertCurrency — payload для convert_currency.
type ConvertCurrency struct {
	Amount       float64 `json:"amount"`
	FromCurrency string  `json:"fromCurrency"`
	ToCurrency   string  `json:"toCurrency"`
}

func (ConvertCurrency) Type() TaskType { return TaskTypeConvertCurrency }
func (ConvertCurrency) isPayload()     {}

// Validate проверяет сумму и коды валют.
func (p ConvertCurrency) Validate() error {
	if !isFinite(p.Amount) {
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.FromCurrency) == "" {
		return fmt.Errorf("%w: fromCurrency is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.ToCurrency) == "" {
		return fmt.Errorf("%w: toCurrency is required", ErrInvalidPayload)
	}
	return nil
}

// CalculateInterest — payload для calculate_interest.
// AnnualRate задаётся в процентах, Days — длительность периода в днях.
type CalculateInterest struct {
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annualRate"`
	Days       float64 `json:"days"`
}

func (CalculateInterest) Type() TaskType { return TaskTypeCalculateInterest }
func (CalculateInterest) isPayload()     {}

// Validate проверяет, что все значения конечны, а период неотрицателен.
func (p CalculateInterest) Validate() error {
	if !isFinite(p.Principal) {
		return fmt.Errorf("%w: principal must be a finite number", ErrInvalidPayload)
	}
	if !isFinite(p.AnnualRate) {
		return fmt.Errorf("%w: annualRate must be a finite number", ErrInvalidPayload)
	}
	if !isFinite(p.Days) || p.Days < 0 {
		return fmt.Errorf("%w: days must be a non-negative number", ErrInvalidPayload)
	}
	return nil
}

// CurrencyConversion — outcome для convert_currency.
type CurrencyConversion struct {
	ConvertedAmount float64 `json:"convertedAmount"`
}

func (CurrencyConversion) Type() TaskType { return TaskTypeConvertCurrency }
func (CurrencyConversion) isOutcome()     {}

// InterestAccrual — outcome для calculate_interest.
type InterestAccrual struct {
	Interest float64 `json:"interest"`
}

func (InterestAccrual) Type() TaskType { return TaskTypeCalculateInterest }
func (InterestAccrual) isOutcome()     {}

// Opaque — данные неизвестного типа, сохранённые как есть.
// Используется и как Payload, и как Outcome, чтобы вызывающий код мог
// отбросить сообщение или переложить его в dead-letter очередь без потерь.
type Opaque struct {
	Tag TaskType
	Raw json.RawMessage
}

func (o Opaque) Type() TaskType { return o.Tag }
func (Opaque) Validate() error  { return nil }
func (Opaque) isPayload()       {}
func (Opaque) isOutcome()       {}

// MarshalJSON отдаёт исходные байты без изменений.
func (o Opaque) MarshalJSON() ([]byte, error) {
	if len(o.Raw) == 0 {
		return []byte("{}"), nil
	}
	return o.Raw, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
