package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vqa/internal/config"
)

func TestDefaultsAreInRange(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if cfg.Analysis.ParallelJobs != 1 {
		t.Fatalf("default parallel_jobs = %d, want 1", cfg.Analysis.ParallelJobs)
	}
	if cfg.Tools.TimeoutSeconds != 600 {
		t.Fatalf("default timeout = %d, want 600", cfg.Tools.TimeoutSeconds)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
jobs_root = "` + filepath.Join(dir, "jobs") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[tools]
timeout_seconds = 42

[analysis]
parallel_jobs = 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tools.TimeoutSeconds != 42 {
		t.Fatalf("timeout = %d, want 42", cfg.Tools.TimeoutSeconds)
	}
	if cfg.ToolTimeout() != 42*time.Second {
		t.Fatalf("ToolTimeout = %v", cfg.ToolTimeout())
	}
	if cfg.Analysis.ParallelJobs != 3 {
		t.Fatalf("parallel_jobs = %d, want 3", cfg.Analysis.ParallelJobs)
	}
	if !filepath.IsAbs(cfg.Paths.JobsRoot) {
		t.Fatalf("jobs_root not absolute: %s", cfg.Paths.JobsRoot)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format error, got %v", err)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestNormalizeClampsZeroValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nparallel_jobs = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.ParallelJobs != 1 {
		t.Fatalf("parallel_jobs = %d, want clamped to 1", cfg.Analysis.ParallelJobs)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.JobsRoot = filepath.Join(dir, "jobs")
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, d := range []string{cfg.Paths.JobsRoot, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", d, err)
		}
	}
}
