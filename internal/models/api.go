package models

import (
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/metrics"
)

type SearchRequest struct {
	Query            string   `json:"query" binding:"required,max=2000"`
	MaxResults       int      `json:"max_results" binding:"omitempty,min=1,max=50"`
	EnableAnalysis   *bool    `json:"enable_analysis"`
	IncludeSynthesis *bool    `json:"include_synthesis"`
	Sources          []string `json:"sources"`
}

// Options resolves request defaults. Analysis and synthesis are on unless
// explicitly disabled.
func (r SearchRequest) Options(defaultMaxResults int) SearchOptions {
	opts := SearchOptions{
		Query:            r.Query,
		MaxResults:       r.MaxResults,
		EnableAnalysis:   r.EnableAnalysis == nil || *r.EnableAnalysis,
		IncludeSynthesis: r.IncludeSynthesis == nil || *r.IncludeSynthesis,
		Sources:          r.Sources,
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = defaultMaxResults
	}
	return opts
}

type AsyncSearchResponse struct {
	TaskID         string `json:"task_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	CheckStatusURL string `json:"check_status_url"`
}

type HistoryResponse struct {
	Count    int                    `json:"count"`
	Searches []metrics.HistoryEntry `json:"searches"`
}

type OrchestratorStatus struct {
	Status             string  `json:"status"`
	TotalSearches      int64   `json:"total_searches"`
	SuccessfulSearches int64   `json:"successful_searches"`
	FailedSearches     int64   `json:"failed_searches"`
	SuccessRate        float64 `json:"success_rate"`
}

type AgentSummary struct {
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	TasksCompleted     int64      `json:"tasks_completed"`
	AvgExecutionTimeMs float64    `json:"avg_execution_time_ms"`
	LastActive         *time.Time `json:"last_active"`
}

type AgentsStatusResponse struct {
	Agents             []AgentSummary     `json:"agents"`
	OrchestratorStatus OrchestratorStatus `json:"orchestrator_status"`
}

type CacheClearResponse struct {
	Message      string `json:"message"`
	ItemsCleared int    `json:"items_cleared"`
}
