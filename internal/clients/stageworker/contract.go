package stageworker

import (
	"errors"
	"fmt"
	"strings"
)

// Operation names one stage-worker endpoint and the JSON field that carries the
// job id in its request body.
type Operation struct {
	Name    string
	Path    string
	IDField string
}

var (
	OpGenerateCourseLayout = Operation{
		Name:    "generate_course_layout",
		Path:    "/api/generateCourseLayout",
		IDField: "courseId",
	}
	OpCreateChapters = Operation{
		Name:    "create_chapters",
		Path:    "/api/createChapters",
		IDField: "courseId",
	}
	OpGenerateChapterContent = Operation{
		Name:    "generate_chapter_content",
		Path:    "/api/generateChapterContent",
		IDField: "chapterId",
	}
)

// Error codes a stage worker may put in the response envelope.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeCourseNotFound  = "COURSE_NOT_FOUND"
	CodeChapterNotFound = "CHAPTER_NOT_FOUND"
	CodeLayoutNotFound  = "LAYOUT_NOT_FOUND"
	CodeNoChapters      = "NO_CHAPTERS_IN_LAYOUT"
	CodeInvalidAIOutput = "INVALID_AI_RESPONSE"
	CodeInternal        = "INTERNAL_ERROR"
)

// messageCodes tags the error messages of stage workers that answer with only
// {"success":false,"error":"..."} and no code. Keys are lower case without the
// trailing period.
var messageCodes = map[string]string{
	"courseid is required":                   CodeInvalidInput,
	"chapterid is required":                  CodeInvalidInput,
	"missing required fields":                CodeInvalidInput,
	"course not found":                       CodeCourseNotFound,
	"chapter not found":                      CodeChapterNotFound,
	"course layout not found":                CodeLayoutNotFound,
	"chapter layout not found":               CodeLayoutNotFound,
	"no chapters found in the course layout": CodeNoChapters,
	"invalid ai response format":             CodeInvalidAIOutput,
}

// CodeForMessage returns the code for a known stage-worker error message, or
// "" when the message is not one of them.
func CodeForMessage(msg string) string {
	key := strings.ToLower(strings.TrimRight(strings.TrimSpace(msg), ". "))
	return messageCodes[key]
}

// Response is the envelope every stage-worker endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error is returned by Perform for every failed call. Transport failures set Err
// and leave StatusCode zero; HTTP failures carry the decoded envelope.
type Error struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("stage worker %s: %v", e.Op, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	return fmt.Sprintf("stage worker %s: status %d: %s", e.Op, e.StatusCode, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatusCode() int { return e.StatusCode }

// IsPrerequisiteMissing reports whether the stage worker refused the job because
// an upstream artifact (the course layout) does not exist yet.
func IsPrerequisiteMissing(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == CodeLayoutNotFound
}
