package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdullah0408/server/internal/http/response"
	"github.com/abdullah0408/server/internal/jobs"
	"github.com/abdullah0408/server/internal/jobs/scheduler"
	"github.com/abdullah0408/server/internal/platform/logger"
)

// PipelineControl is implemented by jobs.Supervisor.
type PipelineControl interface {
	Snapshots() []scheduler.Snapshot
	Trigger(ctx context.Context, name string) (bool, error)
}

type PipelineHandler struct {
	log       *logger.Logger
	pipelines PipelineControl
}

func NewPipelineHandler(log *logger.Logger, pipelines PipelineControl) *PipelineHandler {
	return &PipelineHandler{
		log:       log.With("handler", "PipelineHandler"),
		pipelines: pipelines,
	}
}

// GET /api/pipelines
func (h *PipelineHandler) ListPipelines(c *gin.Context) {
	response.RespondOK(c, gin.H{"pipelines": h.pipelines.Snapshots()})
}

// POST /api/pipelines/:name/run
func (h *PipelineHandler) RunPipeline(c *gin.Context) {
	name := c.Param("name")
	started, err := h.pipelines.Trigger(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownPipeline) {
			response.RespondError(c, http.StatusNotFound, "unknown_pipeline", err)
			return
		}
		h.log.Error("RunPipeline failed", "pipeline", name, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "run_pipeline_failed", err)
		return
	}
	if !started {
		response.RespondError(c, http.StatusConflict, "run_in_flight", errors.New("a run of this pipeline is already in flight"))
		return
	}
	h.log.Info("Pipeline run triggered", "pipeline", name)
	response.RespondAccepted(c, gin.H{"pipeline": name, "started": true})
}
