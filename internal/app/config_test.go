package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdullah0408/server/internal/jobs/pipeline"
	"github.com/abdullah0408/server/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STAGE_WORKER_URL", "DEPLOYED_URL", "POLL_INTERVAL_SECONDS", "JOB_MAX_ATTEMPTS", "JOB_RETRY_BASE_DELAY_MS", "PIPELINES_CONFIG"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "3009" {
		t.Fatalf("port: want=3009 got=%s", cfg.Port)
	}
	if cfg.StageWorker.BaseURL != "http://localhost:3000" {
		t.Fatalf("stage worker url: got=%s", cfg.StageWorker.BaseURL)
	}
	for _, def := range pipeline.Definitions() {
		pc := cfg.Pipelines[def.Name]
		if !pc.Enabled || pc.Interval != time.Minute || pc.MaxAttempts != 5 || pc.BaseDelay != 2*time.Second {
			t.Fatalf("pipeline %s: got=%+v", def.Name, pc)
		}
	}
}

func TestLoadConfigDeployedURLFallback(t *testing.T) {
	t.Setenv("STAGE_WORKER_URL", "")
	t.Setenv("DEPLOYED_URL", "https://courses.example.com")
	t.Setenv("PIPELINES_CONFIG", "")
	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StageWorker.BaseURL != "https://courses.example.com" {
		t.Fatalf("stage worker url: got=%s", cfg.StageWorker.BaseURL)
	}
}

func TestLoadConfigPipelinesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipelines.yaml")
	overlay := `pipelines:
  chapter_content:
    interval: 15s
    max_attempts: 3
    base_delay: 500ms
  create_chapters:
    enabled: false
`
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("PIPELINES_CONFIG", path)
	t.Setenv("POLL_INTERVAL_SECONDS", "")

	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cc := cfg.Pipelines[pipeline.NameChapterContent]
	if cc.Interval != 15*time.Second || cc.MaxAttempts != 3 || cc.BaseDelay != 500*time.Millisecond || !cc.Enabled {
		t.Fatalf("chapter_content: got=%+v", cc)
	}
	if cfg.Pipelines[pipeline.NameCreateChapters].Enabled {
		t.Fatalf("create_chapters: want disabled")
	}
	if cfg.Pipelines[pipeline.NameCourseLayout].Interval != time.Minute {
		t.Fatalf("course_layout: want default interval got=%v", cfg.Pipelines[pipeline.NameCourseLayout].Interval)
	}
}

func TestLoadConfigRejectsUnknownPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipelines.yaml")
	if err := os.WriteFile(path, []byte("pipelines:\n  lesson_build:\n    enabled: true\n"), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("PIPELINES_CONFIG", path)
	if _, err := LoadConfig(testLogger(t)); err == nil {
		t.Fatalf("LoadConfig: want error for unknown pipeline")
	}
}
