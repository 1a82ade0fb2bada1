package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vqa/internal/config"
	"vqa/internal/jobs"
	"vqa/internal/logging"
	"vqa/internal/media"
	"vqa/internal/metrics"
	"vqa/internal/runner"
	"vqa/internal/services"
)

// ToolRunner executes external tool commands. Satisfied by *runner.Runner;
// tests substitute fakes.
type ToolRunner interface {
	Run(ctx context.Context, cmd runner.Command) (*runner.Result, error)
}

// Prober reads media metadata. Satisfied by *media.Prober.
type Prober interface {
	Probe(ctx context.Context, path, inputFormat string) (*media.Info, error)
}

// CommandLogger records tool invocations against a job. Satisfied by
// *jobs.Store; nil disables logging.
type CommandLogger interface {
	AppendCommandLog(ctx context.Context, id string, entry jobs.CommandLogEntry) error
}

// Params carries the per-template knobs of a pipeline run.
type Params struct {
	Encoder       Encoder
	EncoderBinary string
	EncoderParams string
	Metrics       []string
	// SkipEncode reuses an already-encoded bitstream from the output dir
	// instead of running the encoder.
	SkipEncode bool
	// RawInput marks the source as headerless yuv420p.
	RawInput bool
	Width    int
	Height   int
	FPS      float64
	// OutputDir overrides the configured output directory.
	OutputDir string
}

// Pipeline executes the per-job phase sequence: existence check, optional
// encode pass, metric passes, parse, summarize.
type Pipeline struct {
	cfg    *config.Config
	runner ToolRunner
	prober Prober
	cmdLog CommandLogger
	logger *slog.Logger
}

func NewPipeline(cfg *config.Config, run ToolRunner, prober Prober, cmdLog CommandLogger, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		runner: run,
		prober: prober,
		cmdLog: cmdLog,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

// Execute runs the full analysis for one job and returns its metrics summary.
// The job's status transitions are the caller's responsibility; Execute only
// reports success or a classified failure.
func (p *Pipeline) Execute(ctx context.Context, job *jobs.Job, params Params) (*metrics.Summary, error) {
	if !isFile(job.Source) {
		return nil, services.Wrap(services.ErrMissingInput, "analysis", "recheck",
			fmt.Sprintf("source file %s disappeared before execution", job.Source), nil)
	}

	metricNames, unknown := NormalizeMetrics(params.Metrics)
	if len(unknown) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "metrics",
			fmt.Sprintf("unknown metric names %v", unknown), nil)
	}
	if len(metricNames) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "metrics",
			"no metrics requested", nil)
	}

	var refYUV *YUVParams
	if params.RawInput {
		yuv, err := p.resolveYUV(job.Source, params)
		if err != nil {
			return nil, err
		}
		refYUV = yuv
	}

	start := time.Now()
	var (
		reference     string
		distorted     string
		encodeElapsed time.Duration
		cpuSamples    []metrics.CPUSample
	)

	switch job.Mode {
	case jobs.ModeDualFile:
		if !isFile(job.Reference) {
			return nil, services.Wrap(services.ErrMissingInput, "analysis", "recheck",
				fmt.Sprintf("reference file %s disappeared before execution", job.Reference), nil)
		}
		reference = job.Reference
		distorted = job.Source

	default:
		reference = job.Source
		outputDir := params.OutputDir
		if outputDir == "" {
			outputDir = p.cfg.Paths.OutputDir
		}

		if params.SkipEncode {
			found, err := FindEncodedOutput(outputDir, job.Source)
			if err != nil {
				return nil, err
			}
			distorted = found
		} else {
			encoded, result, err := p.encode(ctx, job, params, outputDir, refYUV)
			if err != nil {
				return nil, err
			}
			distorted = encoded
			encodeElapsed = result.Elapsed
			cpuSamples = result.CPUSamples
		}
	}

	metricsDir := filepath.Join(job.JobDir, "metrics")
	if err := os.MkdirAll(metricsDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "analysis", "metrics dir", metricsDir, err)
	}

	tables, vmafReport, err := p.runMetrics(ctx, job, metricNames, distorted, reference, metricsDir, refYUV)
	if err != nil {
		if errors.Is(err, services.ErrTimeout) {
			// Partial output from a timed-out pass is not valid data.
			_ = os.RemoveAll(metricsDir)
		}
		return nil, err
	}

	summary := metrics.Summarize(metrics.Merge(tables...))
	if vmafReport != nil {
		summary.VMAFHarmonicMean = vmafReport.HarmonicMean
	}
	summary.WallClock = time.Since(start)
	summary.CPUSamples = cpuSamples

	if info, probeErr := p.prober.Probe(ctx, distorted, ""); probeErr == nil && info != nil {
		summary.BitRateBPS = info.BitRate
		if encodeElapsed > 0 && info.FrameCount > 0 {
			summary.ThroughputFPS = metrics.Throughput(int(info.FrameCount), encodeElapsed)
		}
	} else {
		p.logger.Warn("probe of encoded output failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(probeErr))
	}

	return summary, nil
}

func (p *Pipeline) resolveYUV(sourcePath string, params Params) (*YUVParams, error) {
	if params.Width > 0 && params.Height > 0 && params.FPS > 0 {
		return &YUVParams{Width: params.Width, Height: params.Height, FPS: params.FPS}, nil
	}
	return ParseYUVName(sourcePath)
}

func (p *Pipeline) encode(ctx context.Context, job *jobs.Job, params Params, outputDir string, yuv *YUVParams) (string, *runner.Result, error) {
	if !ValidEncoder(params.Encoder) {
		return "", nil, services.Wrap(services.ErrConfiguration, "analysis", "encode",
			fmt.Sprintf("unsupported encoder %q", params.Encoder), nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrTransient, "analysis", "output dir", outputDir, err)
	}

	binary := params.EncoderBinary
	if binary == "" && params.Encoder == EncoderFFmpeg {
		binary = p.cfg.FFmpegBinary()
	}
	outputPath := EncodeOutputPath(outputDir, params.Encoder, params.EncoderParams, job.Source)
	binary, args, err := BuildEncodeCommand(params.Encoder, binary, params.EncoderParams, job.Source, outputPath, yuv)
	if err != nil {
		return "", nil, err
	}

	p.logger.Info("encode pass",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldSource, job.Source),
		logging.String("output", outputPath))

	result, runErr := p.runLogged(ctx, job, "encode", runner.Command{
		Name:           "encode",
		Binary:         binary,
		Args:           args,
		Timeout:        p.cfg.ToolTimeout(),
		SampleInterval: p.cfg.CPUSampleInterval(),
	})
	if runErr != nil {
		return "", nil, runErr
	}
	return outputPath, result, nil
}

func (p *Pipeline) runMetrics(ctx context.Context, job *jobs.Job, metricNames []string, distorted, reference, metricsDir string, refYUV *YUVParams) ([][]metrics.Sample, *metrics.VMAFReport, error) {
	var (
		tables     [][]metrics.Sample
		vmafReport *metrics.VMAFReport
	)

	for _, metric := range metricNames {
		logPath := metricLogPath(metricsDir, distorted, metric)
		args := BuildMetricCommand(metric, distorted, reference, logPath, p.cfg.Tools.VMAFModel, refYUV)

		if _, err := p.runLogged(ctx, job, metric, runner.Command{
			Name:    "ffmpeg-" + metric,
			Binary:  p.cfg.FFmpegBinary(),
			Args:    args,
			Timeout: p.cfg.ToolTimeout(),
		}); err != nil {
			return nil, nil, err
		}

		raw, err := os.ReadFile(logPath)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrParse, "analysis", metric,
				fmt.Sprintf("metric report %s missing after run", logPath), err)
		}

		switch metric {
		case MetricPSNR:
			samples, parseErr := metrics.ParsePSNR(string(raw))
			if parseErr != nil {
				return nil, nil, parseErr
			}
			tables = append(tables, samples)
		case MetricSSIM:
			samples, parseErr := metrics.ParseSSIM(string(raw))
			if parseErr != nil {
				return nil, nil, parseErr
			}
			tables = append(tables, samples)
		case MetricVMAF:
			report, parseErr := metrics.ParseVMAF(string(raw))
			if parseErr != nil {
				return nil, nil, parseErr
			}
			vmafReport = report
			tables = append(tables, report.Samples)
		}
	}
	return tables, vmafReport, nil
}

// runLogged executes a command and records it in the job's command log.
func (p *Pipeline) runLogged(ctx context.Context, job *jobs.Job, cmdType string, cmd runner.Command) (*runner.Result, error) {
	entry := jobs.CommandLogEntry{
		Type:      cmdType,
		Argv:      append([]string{cmd.Binary}, cmd.Args...),
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}

	result, err := p.runner.Run(ctx, cmd)

	completed := time.Now().UTC()
	entry.CompletedAt = &completed
	if err != nil {
		entry.Status = "failed"
		entry.Error = err.Error()
	} else {
		entry.Status = "completed"
	}

	if p.cmdLog != nil && job.ID != "" {
		if logErr := p.cmdLog.AppendCommandLog(ctx, job.ID, entry); logErr != nil {
			p.logger.Warn("command log append failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(logErr))
		}
	}
	return result, err
}
