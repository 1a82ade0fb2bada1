package config

const (
	defaultJobsRoot          = "~/.local/share/vqa/jobs"
	defaultOutputDir         = "~/.local/share/vqa/encoded"
	defaultLogDir            = "~/.local/share/vqa/logs"
	defaultToolTimeout       = 600
	defaultParallelJobs      = 1
	defaultCPUSampleInterval = 1
	defaultRetentionDays     = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JobsRoot:  defaultJobsRoot,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			TimeoutSeconds: defaultToolTimeout,
		},
		Analysis: Analysis{
			ParallelJobs:      defaultParallelJobs,
			CPUSampleInterval: defaultCPUSampleInterval,
			RetentionDays:     defaultRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
