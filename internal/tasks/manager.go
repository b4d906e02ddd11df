// Package tasks runs searches in the background and keeps their outcome
// for later polling.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

var ErrTaskNotFound = errors.New("task not found")

type Searcher interface {
	Search(ctx context.Context, opts models.SearchOptions) (*models.SearchResponse, error)
}

// Manager owns the worker pool and the in-memory task table. Tasks live
// until the process exits.
type Manager struct {
	pool     *ants.Pool
	searcher Searcher
	logger   *logrus.Logger

	mu    sync.RWMutex
	tasks map[string]*models.SearchTask
}

// NewManager creates a manager whose pool runs at most poolSize searches
// at once. poolSize <= 0 means no limit. A full bounded pool rejects new
// searches instead of blocking the submitter.
func NewManager(searcher Searcher, poolSize int, logger *logrus.Logger) (*Manager, error) {
	var opts []ants.Option
	if poolSize > 0 {
		opts = append(opts, ants.WithNonblocking(true))
	}

	pool, err := ants.NewPool(poolSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create task pool: %w", err)
	}

	return &Manager{
		pool:     pool,
		searcher: searcher,
		logger:   logger,
		tasks:    make(map[string]*models.SearchTask),
	}, nil
}

// Submit records a processing task and schedules the search. The returned
// copy reflects the task at submission time.
func (m *Manager) Submit(opts models.SearchOptions) (models.SearchTask, error) {
	task := &models.SearchTask{
		ID:        uuid.New().String(),
		Status:    models.TaskStatusProcessing,
		Query:     opts.Query,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	snapshot := *task
	m.mu.Unlock()

	if err := m.pool.Submit(func() { m.run(task.ID, opts) }); err != nil {
		m.mu.Lock()
		delete(m.tasks, task.ID)
		m.mu.Unlock()
		return models.SearchTask{}, fmt.Errorf("failed to schedule search: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"query":   opts.Query,
	}).Info("Async search submitted")

	return snapshot, nil
}

func (m *Manager) run(id string, opts models.SearchOptions) {
	resp, err := m.searcher.Search(context.Background(), opts)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return
	}
	task.CompletedAt = &now
	if err != nil {
		task.Status = models.TaskStatusFailed
		task.Error = err.Error()
		m.logger.WithField("task_id", id).WithError(err).Warn("Async search failed")
		return
	}
	task.Status = models.TaskStatusCompleted
	task.Result = resp
	m.logger.WithField("task_id", id).Debug("Async search completed")
}

// Get returns a copy of the task with the given id.
func (m *Manager) Get(id string) (models.SearchTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[id]
	if !ok {
		return models.SearchTask{}, ErrTaskNotFound
	}
	return *task, nil
}

// Release stops accepting work. Searches already running finish.
func (m *Manager) Release() {
	m.pool.Release()
}
