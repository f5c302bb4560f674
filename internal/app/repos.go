package app

import (
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/repos"
)

type Repos struct {
	Course  repos.CourseRepo
	Chapter repos.ChapterRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:  repos.NewCourseRepo(db, log),
		Chapter: repos.NewChapterRepo(db, log),
	}
}
