package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.JobsRoot) == "" {
		c.Paths.JobsRoot = defaultJobsRoot
	}
	if c.Paths.JobsRoot, err = expandPath(c.Paths.JobsRoot); err != nil {
		return fmt.Errorf("paths.jobs_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Tools.VMAFModel) != "" {
		if c.Tools.VMAFModel, err = expandPath(c.Tools.VMAFModel); err != nil {
			return fmt.Errorf("tools.vmaf_model: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	if c.Tools.TimeoutSeconds <= 0 {
		c.Tools.TimeoutSeconds = defaultToolTimeout
	}
	if c.Analysis.ParallelJobs < 1 {
		c.Analysis.ParallelJobs = defaultParallelJobs
	}
	if c.Analysis.CPUSampleInterval <= 0 {
		c.Analysis.CPUSampleInterval = defaultCPUSampleInterval
	}
	if c.Analysis.RetentionDays <= 0 {
		c.Analysis.RetentionDays = defaultRetentionDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
