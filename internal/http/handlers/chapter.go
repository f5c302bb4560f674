package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/http/response"
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/services"
)

const timeLayout = time.RFC3339

type chapterView struct {
	ID            uuid.UUID `json:"id"`
	CourseID      uuid.UUID `json:"course_id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

func newChapterView(ch *courses.Chapter) chapterView {
	return chapterView{
		ID:            ch.ID,
		CourseID:      ch.CourseID,
		ChapterNumber: ch.ChapterNumber,
		Title:         ch.Title,
		Status:        ch.Status,
		CreatedAt:     ch.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:     ch.UpdatedAt.UTC().Format(timeLayout),
	}
}

type ChapterHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewChapterHandler(log *logger.Logger, jobs services.JobService) *ChapterHandler {
	return &ChapterHandler{
		log:  log.With("handler", "ChapterHandler"),
		jobs: jobs,
	}
}

type createChapterRequest struct {
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title"`
}

// POST /api/courses/:id/chapters
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req createChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ch, err := h.jobs.EnqueueChapter(c.Request.Context(), nil, courseID, req.ChapterNumber, req.Title)
	if err != nil {
		response.RespondAPIError(c, err, "create_chapter_failed")
		return
	}
	response.RespondCreated(c, gin.H{"chapter": newChapterView(ch)})
}

// GET /api/chapters/:id
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	ch, err := h.jobs.GetChapter(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondAPIError(c, err, "chapter_not_found")
		return
	}
	response.RespondOK(c, gin.H{"chapter": newChapterView(ch)})
}

// POST /api/chapters/:id/reset
func (h *ChapterHandler) ResetChapter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	var req resetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	ch, err := h.jobs.ResetChapter(c.Request.Context(), nil, id, req.To)
	if err != nil {
		response.RespondAPIError(c, err, "reset_chapter_failed")
		return
	}
	response.RespondOK(c, gin.H{"chapter": newChapterView(ch)})
}
