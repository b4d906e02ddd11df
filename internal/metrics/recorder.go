// Package metrics records process-wide search counters, a bounded search
// history and per-stage execution timings.
//
// A Recorder is created once at process start and injected into the
// components that report to it. It lives until the process exits.
package metrics

import (
	"sync"
	"time"

	"github.com/Ayash-Bera/agentsearch/pkg/utils"
)

const DefaultHistorySize = 100

// HistoryEntry is one recorded query.
type HistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// StageSummary aggregates the recorded timings of one stage.
type StageSummary struct {
	StageName          string  `json:"agent_name"`
	TotalExecutions    int     `json:"total_executions"`
	AvgExecutionTimeMs float64 `json:"avg_execution_time_ms"`
	MinExecutionTimeMs float64 `json:"min_execution_time_ms"`
	MaxExecutionTimeMs float64 `json:"max_execution_time_ms"`
}

// Summary is the metrics surface.
type Summary struct {
	UptimeSeconds     float64                 `json:"uptime_seconds"`
	TotalSearches     int64                   `json:"total_searches"`
	ErrorCount        int64                   `json:"error_count"`
	SearchesPerMinute float64                 `json:"searches_per_minute"`
	AgentMetrics      map[string]StageSummary `json:"agent_metrics"`
	StartTime         time.Time               `json:"start_time"`
}

type stageSamples struct {
	count int
	total float64
	min   float64
	max   float64
}

// Recorder is safe for concurrent use; all state sits behind one mutex.
type Recorder struct {
	mu            sync.Mutex
	startTime     time.Time
	totalSearches int64
	errorCount    int64
	history       []HistoryEntry
	historySize   int
	stages        map[string]*stageSamples
	now           func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithHistorySize caps the search history. Values below 1 keep the default.
func WithHistorySize(size int) Option {
	return func(r *Recorder) {
		if size >= 1 {
			r.historySize = size
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		historySize: DefaultHistorySize,
		stages:      make(map[string]*stageSamples),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.startTime = r.now()
	r.history = make([]HistoryEntry, 0, r.historySize)
	return r
}

// RecordSearch appends query to the history and counts it.
func (r *Recorder) RecordSearch(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalSearches++
	if len(r.history) == r.historySize {
		copy(r.history, r.history[1:])
		r.history = r.history[:len(r.history)-1]
	}
	r.history = append(r.history, HistoryEntry{Query: query, Timestamp: r.now()})
}

// RecordStageExecution adds one timing sample for stage.
func (r *Recorder) RecordStageExecution(stage string, elapsedMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stages[stage]
	if !ok {
		r.stages[stage] = &stageSamples{count: 1, total: elapsedMs, min: elapsedMs, max: elapsedMs}
		return
	}
	s.count++
	s.total += elapsedMs
	if elapsedMs < s.min {
		s.min = elapsedMs
	}
	if elapsedMs > s.max {
		s.max = elapsedMs
	}
}

func (r *Recorder) RecordError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorCount++
}

// TotalSearches returns the number of recorded searches.
func (r *Recorder) TotalSearches() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSearches
}

// History returns up to limit most recent entries, oldest first.
// A limit below 1 returns the whole history.
func (r *Recorder) History(limit int) []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := 0
	if limit >= 1 && limit < len(r.history) {
		start = len(r.history) - limit
	}
	out := make([]HistoryEntry, len(r.history)-start)
	copy(out, r.history[start:])
	return out
}

// Stage returns the aggregate for one stage; zero values when nothing was recorded.
func (r *Recorder) Stage(stage string) StageSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stageSummaryLocked(stage)
}

func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	uptime := r.now().Sub(r.startTime).Seconds()

	var perMinute float64
	if uptime > 0 {
		perMinute = utils.RoundTo(float64(r.totalSearches)/(uptime/60), 2)
	}

	stages := make(map[string]StageSummary, len(r.stages))
	for name := range r.stages {
		stages[name] = r.stageSummaryLocked(name)
	}

	return Summary{
		UptimeSeconds:     utils.RoundTo(uptime, 2),
		TotalSearches:     r.totalSearches,
		ErrorCount:        r.errorCount,
		SearchesPerMinute: perMinute,
		AgentMetrics:      stages,
		StartTime:         r.startTime,
	}
}

func (r *Recorder) stageSummaryLocked(stage string) StageSummary {
	s, ok := r.stages[stage]
	if !ok || s.count == 0 {
		return StageSummary{StageName: stage}
	}
	return StageSummary{
		StageName:          stage,
		TotalExecutions:    s.count,
		AvgExecutionTimeMs: utils.RoundTo(s.total/float64(s.count), 2),
		MinExecutionTimeMs: utils.RoundTo(s.min, 2),
		MaxExecutionTimeMs: utils.RoundTo(s.max, 2),
	}
}
