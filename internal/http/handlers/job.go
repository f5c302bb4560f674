package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdullah0408/server/internal/http/response"
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/services"
)

type JobHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewJobHandler(log *logger.Logger, jobs services.JobService) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs}
}

// GET /api/jobs/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.jobs.Stats(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("GetStats failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "load_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}
