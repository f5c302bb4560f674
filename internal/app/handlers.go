package app

import (
	"github.com/abdullah0408/server/internal/db"
	httpH "github.com/abdullah0408/server/internal/http/handlers"
	"github.com/abdullah0408/server/internal/jobs"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Pipeline *httpH.PipelineHandler
	Course   *httpH.CourseHandler
	Chapter  *httpH.ChapterHandler
	Job      *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, dbService *db.Service, services Services, sup *jobs.Supervisor) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(dbService.Ping),
		Pipeline: httpH.NewPipelineHandler(log, sup),
		Course:   httpH.NewCourseHandler(log, services.Jobs),
		Chapter:  httpH.NewChapterHandler(log, services.Jobs),
		Job:      httpH.NewJobHandler(log, services.Jobs),
	}
}
