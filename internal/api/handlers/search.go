// internal/api/handlers/search.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/orchestrator"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/tasks"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 20

type SearchHandler struct {
	orchestrator      *orchestrator.Orchestrator
	tasks             *tasks.Manager
	recorder          *metrics.Recorder
	defaultMaxResults int
	maxResultsLimit   int
	logger            *logrus.Logger
}

func NewSearchHandler(
	orch *orchestrator.Orchestrator,
	taskManager *tasks.Manager,
	recorder *metrics.Recorder,
	defaultMaxResults int,
	maxResultsLimit int,
	logger *logrus.Logger,
) *SearchHandler {
	return &SearchHandler{
		orchestrator:      orch,
		tasks:             taskManager,
		recorder:          recorder,
		defaultMaxResults: defaultMaxResults,
		maxResultsLimit:   maxResultsLimit,
		logger:            logger,
	}
}

// bindSearch decodes and validates a search body, writing the 400 itself
// when the request is unusable.
func (h *SearchHandler) bindSearch(c *gin.Context) (models.SearchOptions, bool) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid search request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return models.SearchOptions{}, false
	}

	if err := query.Validate(req.Query); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query", err)
		return models.SearchOptions{}, false
	}

	opts := req.Options(h.defaultMaxResults)
	if h.maxResultsLimit > 0 && opts.MaxResults > h.maxResultsLimit {
		utils.ErrorResponse(c, http.StatusBadRequest,
			fmt.Sprintf("max_results must not exceed %d", h.maxResultsLimit), nil)
		return models.SearchOptions{}, false
	}
	return opts, true
}

// HandleSearch runs a search synchronously.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	opts, ok := h.bindSearch(c)
	if !ok {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"query":       opts.Query,
		"max_results": opts.MaxResults,
		"sources":     opts.Sources,
		"user_agent":  c.GetHeader("User-Agent"),
		"ip_address":  c.ClientIP(),
	}).Info("Processing search request")

	resp, err := h.orchestrator.Search(c.Request.Context(), opts)
	if err != nil {
		message := "Search failed"
		var stageErr *orchestrator.StageError
		if errors.As(err, &stageErr) {
			message = "Search failed during " + string(stageErr.Stage)
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, message, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Search completed", resp)
}

// HandleAsyncSearch schedules a search and returns its task id.
func (h *SearchHandler) HandleAsyncSearch(c *gin.Context) {
	opts, ok := h.bindSearch(c)
	if !ok {
		return
	}

	task, err := h.tasks.Submit(opts)
	if err != nil {
		h.logger.WithError(err).Error("Failed to start async search")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Failed to start search task", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Search task started", models.AsyncSearchResponse{
		TaskID:         task.ID,
		Status:         task.Status,
		Message:        "Search task started",
		CheckStatusURL: "/api/v1/search/task/" + task.ID,
	})
}

func (h *SearchHandler) HandleTaskStatus(c *gin.Context) {
	task, err := h.tasks.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Task not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get task", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Task retrieved", task)
}

// HandleHistory returns the most recent searches, newest last.
func (h *SearchHandler) HandleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.ErrorResponse(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	history := h.recorder.History(limit)
	utils.SuccessResponse(c, http.StatusOK, "History retrieved", models.HistoryResponse{
		Count:    len(history),
		Searches: history,
	})
}
