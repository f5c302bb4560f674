package app

import (
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/services"
)

type Services struct {
	Jobs services.JobService
}

func wireServices(log *logger.Logger, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")
	return Services{
		Jobs: services.NewJobService(log, reposet.Course, reposet.Chapter, clients.Bus),
	}
}
