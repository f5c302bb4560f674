package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/abdullah0408/server/internal/http/handlers"
	httpMW "github.com/abdullah0408/server/internal/http/middleware"
	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	HealthHandler   *httpH.HealthHandler
	PipelineHandler *httpH.PipelineHandler
	CourseHandler   *httpH.CourseHandler
	ChapterHandler  *httpH.ChapterHandler
	JobHandler      *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	// Metrics
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Pipelines
		if cfg.PipelineHandler != nil {
			api.GET("/pipelines", cfg.PipelineHandler.ListPipelines)
			api.POST("/pipelines/:name/run", cfg.PipelineHandler.RunPipeline)
		}

		// Courses
		if cfg.CourseHandler != nil {
			api.POST("/courses", cfg.CourseHandler.CreateCourse)
			api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			api.POST("/courses/:id/reset", cfg.CourseHandler.ResetCourse)
		}

		// Chapters
		if cfg.ChapterHandler != nil {
			api.POST("/courses/:id/chapters", cfg.ChapterHandler.CreateChapter)
			api.GET("/chapters/:id", cfg.ChapterHandler.GetChapter)
			api.POST("/chapters/:id/reset", cfg.ChapterHandler.ResetChapter)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs/stats", cfg.JobHandler.GetStats)
		}
	}

	return r
}
