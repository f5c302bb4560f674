package courses

// Course statuses. A course enters at StatusPending and is only moved by the
// job runtime or an operator reset.
const (
	StatusPending                = "PENDING"
	StatusProcessing             = "PROCESSING"
	StatusApprovedLayout         = "APPROVED_LAYOUT"
	StatusChaptersCreated        = "CHAPTERS_CREATED"
	StatusCreatingChaptersFailed = "CREATING_CHAPTERS_FAILED"
	StatusFailed                 = "FAILED"
)

// Chapter statuses.
const (
	ChapterStatusPending    = "PENDING"
	ChapterStatusProcessing = "PROCESSING"
	ChapterStatusDone       = "DONE"
	ChapterStatusFailed     = "FAILED"
)

var courseStatuses = map[string]bool{
	StatusPending:                true,
	StatusProcessing:             true,
	StatusApprovedLayout:         true,
	StatusChaptersCreated:        true,
	StatusCreatingChaptersFailed: true,
	StatusFailed:                 true,
}

var chapterStatuses = map[string]bool{
	ChapterStatusPending:    true,
	ChapterStatusProcessing: true,
	ChapterStatusDone:       true,
	ChapterStatusFailed:     true,
}

func IsCourseStatus(s string) bool  { return courseStatuses[s] }
func IsChapterStatus(s string) bool { return chapterStatuses[s] }

// IsTerminalFailure reports whether s is a status a pipeline parks a job in
// after exhausting its attempts.
func IsTerminalFailure(s string) bool {
	return s == StatusFailed || s == StatusCreatingChaptersFailed
}
