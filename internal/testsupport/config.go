package testsupport

import (
	"path/filepath"
	"testing"

	"vqa/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.JobsRoot = filepath.Join(base, "jobs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithToolTimeout overrides the external tool timeout, in seconds.
func WithToolTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tools.TimeoutSeconds = seconds
	}
}

// WithParallelJobs overrides the default worker pool size.
func WithParallelJobs(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.ParallelJobs = n
	}
}
