package pipeline

import (
	"github.com/abdullah0408/server/internal/clients/stageworker"
	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/domain/jobs"
)

const (
	NameCourseLayout   = "course_layout"
	NameCreateChapters = "create_chapters"
	NameChapterContent = "chapter_content"
)

// Definition is the static description of one pipeline: which table it polls,
// which statuses it moves a job through, and which stage-worker operation it
// calls.
type Definition struct {
	Name          string
	Entity        jobs.Entity
	EntryStatus   string
	WorkingStatus string
	SuccessStatus string
	FailureStatus string
	// PriorEntryStatus is where a job goes when the stage worker reports that
	// an upstream artifact is missing. Empty turns that report into an
	// ordinary transient failure.
	PriorEntryStatus string
	Operation        stageworker.Operation
}

func CourseLayout() Definition {
	return Definition{
		Name:          NameCourseLayout,
		Entity:        jobs.EntityCourse,
		EntryStatus:   courses.StatusPending,
		WorkingStatus: courses.StatusProcessing,
		SuccessStatus: courses.StatusApprovedLayout,
		FailureStatus: courses.StatusFailed,
		Operation:     stageworker.OpGenerateCourseLayout,
	}
}

func CreateChapters() Definition {
	return Definition{
		Name:             NameCreateChapters,
		Entity:           jobs.EntityCourse,
		EntryStatus:      courses.StatusApprovedLayout,
		WorkingStatus:    courses.StatusProcessing,
		SuccessStatus:    courses.StatusChaptersCreated,
		FailureStatus:    courses.StatusCreatingChaptersFailed,
		PriorEntryStatus: courses.StatusPending,
		Operation:        stageworker.OpCreateChapters,
	}
}

func ChapterContent() Definition {
	return Definition{
		Name:          NameChapterContent,
		Entity:        jobs.EntityChapter,
		EntryStatus:   courses.ChapterStatusPending,
		WorkingStatus: courses.ChapterStatusProcessing,
		SuccessStatus: courses.ChapterStatusDone,
		FailureStatus: courses.ChapterStatusFailed,
		Operation:     stageworker.OpGenerateChapterContent,
	}
}

// Definitions lists every pipeline in the order they feed each other.
func Definitions() []Definition {
	return []Definition{CourseLayout(), CreateChapters(), ChapterContent()}
}

// Lookup returns the definition registered under name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
