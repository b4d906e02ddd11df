// Package agent tracks the lifecycle and execution statistics of the
// pipeline stages so they can be reported on the status surface.
package agent

import (
	"sync"
	"time"

	"github.com/Ayash-Bera/agentsearch/pkg/utils"
)

const (
	StatusInitializing = "initializing"
	StatusReady        = "ready"
	StatusWorking      = "working"
	StatusError        = "error"
)

// StageRecorder receives one timing sample per finished task.
type StageRecorder interface {
	RecordStageExecution(stage string, elapsedMs float64)
}

// Status is the reported state of one stage.
type Status struct {
	Name                 string     `json:"name"`
	Status               string     `json:"status"`
	TasksCompleted       int64      `json:"tasks_completed"`
	AvgExecutionTimeMs   float64    `json:"avg_execution_time_ms"`
	TotalExecutionTimeMs float64    `json:"total_execution_time_ms"`
	LastActive           *time.Time `json:"last_active"`
	Capabilities         []string   `json:"capabilities,omitempty"`
}

// Tracker is shared by every query that runs the stage, so it is guarded
// by a mutex. A stage is "working" while at least one task is in flight.
type Tracker struct {
	mu             sync.Mutex
	name           string
	capabilities   []string
	recorder       StageRecorder
	status         string
	inFlight       int
	tasksCompleted int64
	totalMs        float64
	lastActive     time.Time
}

func NewTracker(name string, recorder StageRecorder, capabilities ...string) *Tracker {
	return &Tracker{
		name:         name,
		capabilities: capabilities,
		recorder:     recorder,
		status:       StatusInitializing,
	}
}

func (t *Tracker) Name() string {
	return t.name
}

// MarkReady moves a freshly built stage out of the initializing state.
func (t *Tracker) MarkReady() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight == 0 {
		t.status = StatusReady
	}
}

// Start marks a task as begun and returns its start time.
func (t *Tracker) Start() time.Time {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.inFlight++
	t.status = StatusWorking
	t.lastActive = now
	return now
}

// Finish completes a task started at start and returns its duration in ms.
func (t *Tracker) Finish(start time.Time) float64 {
	elapsed := utils.Millis(time.Since(start))

	t.mu.Lock()
	t.inFlight--
	t.tasksCompleted++
	t.totalMs += elapsed
	t.lastActive = time.Now()
	if t.inFlight == 0 {
		t.status = StatusReady
	}
	t.mu.Unlock()

	if t.recorder != nil {
		t.recorder.RecordStageExecution(t.name, elapsed)
	}
	return elapsed
}

// Fail ends a task started at start without counting it as completed.
func (t *Tracker) Fail(start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inFlight--
	t.lastActive = time.Now()
	if t.inFlight == 0 {
		t.status = StatusError
	}
}

// Ready reports whether the stage can take work.
func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusReady || t.status == StatusWorking
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Name:                 t.name,
		Status:               t.status,
		TasksCompleted:       t.tasksCompleted,
		TotalExecutionTimeMs: utils.RoundTo(t.totalMs, 2),
		Capabilities:         append([]string(nil), t.capabilities...),
	}
	if t.tasksCompleted > 0 {
		s.AvgExecutionTimeMs = utils.RoundTo(t.totalMs/float64(t.tasksCompleted), 2)
	}
	if !t.lastActive.IsZero() {
		last := t.lastActive
		s.LastActive = &last
	}
	return s
}
