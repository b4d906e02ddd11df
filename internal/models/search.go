package models

import (
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/synthesis"
)

// SearchOptions is a validated search request with defaults applied.
type SearchOptions struct {
	Query            string
	MaxResults       int
	EnableAnalysis   bool
	IncludeSynthesis bool
	Sources          []string
}

type AgentMetrics struct {
	QueryProcessingMs float64  `json:"query_processing_ms"`
	SearchExecutionMs float64  `json:"search_execution_ms"`
	AnalysisMs        float64  `json:"analysis_ms"`
	SynthesisMs       float64  `json:"synthesis_ms"`
	TotalTimeMs       float64  `json:"total_time_ms"`
	AgentsUsed        []string `json:"agents_used"`
	CacheHit          bool     `json:"cache_hit"`
}

type SearchResponse struct {
	Query        string                 `json:"query"`
	Results      []ranking.ScoredResult `json:"results"`
	Synthesis    *synthesis.Result      `json:"synthesis"`
	AgentMetrics AgentMetrics           `json:"agent_metrics"`
	Timestamp    time.Time              `json:"timestamp"`
	Cached       bool                   `json:"cached"`
}

// Clone copies the response deeply enough that a cached value and the copy
// handed to a caller share no mutable slices or maps.
func (r SearchResponse) Clone() SearchResponse {
	out := r
	out.Results = make([]ranking.ScoredResult, len(r.Results))
	copy(out.Results, r.Results)
	out.AgentMetrics.AgentsUsed = append([]string(nil), r.AgentMetrics.AgentsUsed...)

	if r.Synthesis != nil {
		syn := *r.Synthesis
		syn.KeyPoints = append([]string(nil), r.Synthesis.KeyPoints...)
		syn.SourcesUsed = make(map[string]int, len(r.Synthesis.SourcesUsed))
		for k, v := range r.Synthesis.SourcesUsed {
			syn.SourcesUsed[k] = v
		}
		out.Synthesis = &syn
	}
	return out
}

const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// SearchTask is the record of one asynchronous search.
type SearchTask struct {
	ID          string          `json:"task_id"`
	Status      string          `json:"status"`
	Query       string          `json:"query"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *SearchResponse `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}
