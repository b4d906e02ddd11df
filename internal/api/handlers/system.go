package handlers

import (
	"net/http"

	"github.com/Ayash-Bera/agentsearch/internal/health"
	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/orchestrator"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SystemHandler serves the status, metrics, cache and health surfaces.
type SystemHandler struct {
	orchestrator *orchestrator.Orchestrator
	checker      *health.Checker
	logger       *logrus.Logger
}

func NewSystemHandler(orch *orchestrator.Orchestrator, checker *health.Checker, logger *logrus.Logger) *SystemHandler {
	return &SystemHandler{
		orchestrator: orch,
		checker:      checker,
		logger:       logger,
	}
}

func (h *SystemHandler) HandleAgentsStatus(c *gin.Context) {
	statuses := h.orchestrator.Agents()
	agents := make([]models.AgentSummary, 0, len(statuses))
	for _, s := range statuses {
		agents = append(agents, models.AgentSummary{
			Name:               s.Name,
			Status:             s.Status,
			TasksCompleted:     s.TasksCompleted,
			AvgExecutionTimeMs: s.AvgExecutionTimeMs,
			LastActive:         s.LastActive,
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "Agent status retrieved", models.AgentsStatusResponse{
		Agents:             agents,
		OrchestratorStatus: h.orchestrator.Status(),
	})
}

// HandleAgentDetail looks a stage up by its short key, e.g. "analysis".
func (h *SystemHandler) HandleAgentDetail(c *gin.Context) {
	name := c.Param("name")
	tracker, ok := h.orchestrator.Agent(name)
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "Agent '"+name+"' not found", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Agent retrieved", tracker.Status())
}

func (h *SystemHandler) HandleMetrics(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Metrics retrieved", h.orchestrator.Recorder().Summary())
}

func (h *SystemHandler) HandleCacheClear(c *gin.Context) {
	cleared := h.orchestrator.Cache().Clear()
	h.logger.WithField("items_cleared", cleared).Info("Cache cleared")

	utils.SuccessResponse(c, http.StatusOK, "Cache cleared", models.CacheClearResponse{
		Message:      "Cache cleared successfully",
		ItemsCleared: cleared,
	})
}

func (h *SystemHandler) HandleCacheStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Cache stats retrieved", h.orchestrator.Cache().Stats())
}

// HandleHealth answers 200 while healthy or degraded; only an unhealthy
// report returns 503.
func (h *SystemHandler) HandleHealth(c *gin.Context) {
	report := h.checker.CheckAll()

	code := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	utils.SuccessResponse(c, code, "Service is "+report.Status, report)
}
