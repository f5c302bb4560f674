package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/http/response"
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/services"
)

type resetRequest struct {
	To string `json:"to"`
}

type courseView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	HasLayout bool      `json:"has_layout"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

func newCourseView(c *courses.Course) courseView {
	return courseView{
		ID:        c.ID,
		Title:     c.Title,
		Status:    c.Status,
		HasLayout: c.HasLayout(),
		CreatedAt: c.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: c.UpdatedAt.UTC().Format(timeLayout),
	}
}

type CourseHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewCourseHandler(log *logger.Logger, jobs services.JobService) *CourseHandler {
	return &CourseHandler{
		log:  log.With("handler", "CourseHandler"),
		jobs: jobs,
	}
}

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.jobs.EnqueueCourse(c.Request.Context(), nil, req.Title, req.Description, req.Difficulty)
	if err != nil {
		response.RespondAPIError(c, err, "create_course_failed")
		return
	}
	response.RespondCreated(c, gin.H{"course": newCourseView(course)})
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	course, err := h.jobs.GetCourse(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondAPIError(c, err, "course_not_found")
		return
	}
	chapters, err := h.jobs.ListChapters(c.Request.Context(), nil, id)
	if err != nil {
		h.log.Error("ListChapters failed", "course_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "load_chapters_failed", err)
		return
	}
	views := make([]chapterView, 0, len(chapters))
	for _, ch := range chapters {
		views = append(views, newChapterView(ch))
	}
	response.RespondOK(c, gin.H{"course": newCourseView(course), "chapters": views})
}

// POST /api/courses/:id/reset
func (h *CourseHandler) ResetCourse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req resetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	course, err := h.jobs.ResetCourse(c.Request.Context(), nil, id, req.To)
	if err != nil {
		response.RespondAPIError(c, err, "reset_course_failed")
		return
	}
	response.RespondOK(c, gin.H{"course": newCourseView(course)})
}
