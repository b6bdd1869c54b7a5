package submitter

import (
	"fmt"
	"sync"

	"github.com/shaiso/Conveyor/internal/domain"
)

// TaskLog — журнал отправленных задач в памяти процесса.
//
// Единственный писатель — Submitter. Нужен только для отображения:
// доставка задачи от журнала не зависит.
type TaskLog struct {
	mu    sync.RWMutex
	tasks []domain.Task
	index map[string]int
}

// NewTaskLog создаёт пустой журнал.
func NewTaskLog() *TaskLog {
	return &TaskLog{
		index: make(map[string]int),
	}
}

// Record добавляет задачу в журнал.
func (l *TaskLog) Record(task domain.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.index[task.ID] = len(l.tasks)
	l.tasks = append(l.tasks, task)
}

// Get возвращает задачу по ID.
func (l *TaskLog) Get(id string) (domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return l.tasks[i], nil
}

// Snapshot возвращает копию журнала в порядке отправки.
func (l *TaskLog) Snapshot() []domain.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Len возвращает количество задач в журнале.
func (l *TaskLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tasks)
}
