package collector

import (
	"sync"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Store — хранилище результатов в памяти процесса.
//
// Единственный писатель — цикл Collector'а. Читатели получают копию
// через Snapshot и никогда не видят частично записанный результат.
// Записи не удаляются до конца жизни процесса.
type Store struct {
	mu      sync.RWMutex
	results []domain.Result
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{}
}

// Append добавляет результат в конец.
func (s *Store) Append(result domain.Result) {
	s.mu.Lock()
	s.results = append(s.results, result)
	n := len(s.results)
	s.mu.Unlock()

	telemetry.ResultsStored.Set(float64(n))
}

// Snapshot возвращает копию всех результатов в порядке добавления.
func (s *Store) Snapshot() []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Result, len(s.results))
	copy(out, s.results)
	return out
}

// ByTaskID возвращает все результаты задачи (включая дубликаты).
func (s *Store) ByTaskID(taskID string) []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Result
	for _, r := range s.results {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out
}

// Len возвращает количество результатов.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
