// Package health reports whether the pipeline stages and shared stores are
// able to serve searches.
package health

import (
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/agent"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// StageSource lists the stage statuses to check.
type StageSource interface {
	Agents() []agent.Status
}

type CacheSizer interface {
	Size() int
}

type SearchCounter interface {
	TotalSearches() int64
}

// ServiceHealth is the check result for one component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"last_checked"`
}

// OverallHealth is the aggregated report.
type OverallHealth struct {
	Status        string          `json:"status"`
	Services      []ServiceHealth `json:"services"`
	CacheSize     int             `json:"cache_size"`
	TotalSearches int64           `json:"total_searches"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Uptime        string          `json:"uptime"`
}

// Checker manages health checks for the in-process components.
type Checker struct {
	stages    StageSource
	cache     CacheSizer
	searches  SearchCounter
	logger    *logrus.Logger
	startTime time.Time
}

func NewChecker(stages StageSource, cache CacheSizer, searches SearchCounter, logger *logrus.Logger) *Checker {
	return &Checker{
		stages:    stages,
		cache:     cache,
		searches:  searches,
		logger:    logger,
		startTime: time.Now(),
	}
}

// CheckStage reports one stage as healthy while it can take work, and
// degraded while it is initializing or its last task failed.
func (h *Checker) CheckStage(s agent.Status) ServiceHealth {
	health := ServiceHealth{
		Name:        s.Name,
		Status:      StatusHealthy,
		LastChecked: time.Now().Format(time.RFC3339),
	}

	switch s.Status {
	case agent.StatusReady, agent.StatusWorking:
	case agent.StatusError:
		health.Status = StatusDegraded
		health.Error = "last task failed"
	default:
		health.Status = StatusDegraded
		health.Error = "stage is " + s.Status
	}

	if health.Status != StatusHealthy {
		h.logger.WithFields(logrus.Fields{
			"stage":  s.Name,
			"status": s.Status,
		}).Warn("Stage health check failed")
	}
	return health
}

// CheckAll performs health checks on all stages.
func (h *Checker) CheckAll() OverallHealth {
	statuses := h.stages.Agents()
	services := make([]ServiceHealth, 0, len(statuses))
	for _, s := range statuses {
		services = append(services, h.CheckStage(s))
	}

	overallStatus := StatusHealthy
	for _, service := range services {
		if service.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if service.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	uptime := time.Since(h.startTime)
	return OverallHealth{
		Status:        overallStatus,
		Services:      services,
		CacheSize:     h.cache.Size(),
		TotalSearches: h.searches.TotalSearches(),
		UptimeSeconds: uptime.Seconds(),
		Uptime:        uptime.Round(time.Second).String(),
	}
}
