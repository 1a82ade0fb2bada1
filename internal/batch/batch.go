package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"vqa/internal/analysis"
	"vqa/internal/config"
	"vqa/internal/envinfo"
	"vqa/internal/jobs"
	"vqa/internal/logging"
	"vqa/internal/metrics"
	"vqa/internal/services"
	"vqa/internal/sources"
)

// JobExecutor runs one job's analysis. Satisfied by *analysis.Pipeline.
type JobExecutor interface {
	Execute(ctx context.Context, job *jobs.Job, params analysis.Params) (*metrics.Summary, error)
}

// Orchestrator fans a resolved source set out over a bounded worker pool, one
// job per file, and reassembles results in input order.
type Orchestrator struct {
	cfg      *config.Config
	store    *jobs.Store
	executor JobExecutor
	logger   *slog.Logger
}

func New(cfg *config.Config, store *jobs.Store, executor JobExecutor, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		executor: executor,
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
}

// RunTemplate resolves the template's source spec and executes one job per
// resolved file. A single job's failure never aborts its siblings; the batch
// is complete when every job is terminal. The report is also written as
// analyse_data.json into the batch's output directory.
func (o *Orchestrator) RunTemplate(ctx context.Context, tpl *jobs.Template) (*Report, error) {
	resolution := sources.Resolve(tpl.SourceSpec)
	if len(resolution.Files) == 0 {
		return nil, services.Wrap(services.ErrMissingInput, "batch", tpl.Name,
			fmt.Sprintf("source spec %q resolved to no files", tpl.SourceSpec), nil)
	}

	unlock, err := o.acquireRunLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	parallel := tpl.ParallelJobs
	if parallel <= 0 {
		parallel = o.cfg.Analysis.ParallelJobs
	}
	if parallel <= 0 {
		parallel = 1
	}

	outputDir := tpl.OutputDir
	if outputDir == "" {
		outputDir = o.cfg.Paths.OutputDir
	}

	report := &Report{
		Template:    tpl.Name,
		SourceSpec:  tpl.SourceSpec,
		StartedAt:   time.Now().UTC(),
		Environment: envinfo.Collect(),
		Warnings:    resolution.Warnings,
		TotalFiles:  len(resolution.Files),
		Results:     make([]FileResult, len(resolution.Files)),
	}

	batch := make([]*jobs.Job, len(resolution.Files))
	for i, file := range resolution.Files {
		job := &jobs.Job{
			Mode:     jobs.ModeSingleFile,
			Template: tpl.Name,
			Source:   file.Path,
		}
		if err := o.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("create job for %s: %w", file.Path, err)
		}
		job.JobDir = filepath.Join(o.cfg.Paths.JobsRoot, "jobs", job.ID)
		batch[i] = job

		report.Results[i] = FileResult{Index: i, Source: file.Path, JobID: job.ID}
	}

	o.logger.Info("batch started",
		logging.String(logging.FieldTemplate, tpl.Name),
		logging.Int("files", len(batch)),
		logging.Int("parallel", parallel))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)
	for i, job := range batch {
		group.Go(func() error {
			report.Results[i] = o.runOne(ctx, groupCtx, job, tpl, outputDir, i)
			return nil
		})
	}
	// Workers never return errors; failures are recorded per file.
	_ = group.Wait()

	report.FinishedAt = time.Now().UTC()
	report.tally()

	if err := report.Write(filepath.Join(outputDir, ReportFileName)); err != nil {
		o.logger.Warn("batch report write failed", logging.Error(err))
	}

	o.logger.Info("batch finished",
		logging.String(logging.FieldTemplate, tpl.Name),
		logging.Int("successful", report.Successful),
		logging.Int("failed", report.Failed),
		logging.Int("cancelled", report.Cancelled))
	return report, nil
}

// runOne drives a single job from pending to terminal state. parentCtx is
// consulted for cancellation so that pending jobs of a cancelled batch go
// straight to cancelled without ever running.
func (o *Orchestrator) runOne(parentCtx, ctx context.Context, job *jobs.Job, tpl *jobs.Template, outputDir string, index int) FileResult {
	result := FileResult{Index: index, Source: job.Source, JobID: job.ID}

	// Status updates must survive batch cancellation.
	storeCtx := context.WithoutCancel(parentCtx)

	if parentCtx.Err() != nil {
		if err := o.store.MarkCancelled(storeCtx, job.ID); err != nil {
			o.logger.Warn("cancel of pending job failed",
				logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
		result.Status = jobs.StatusCancelled
		result.ErrorKind = services.KindCancelled
		result.ErrorMessage = "batch cancelled before job started"
		return result
	}

	if err := o.store.MarkRunning(storeCtx, job.ID); err != nil {
		result.Status = jobs.StatusFailed
		result.ErrorKind = services.KindTransient
		result.ErrorMessage = err.Error()
		return result
	}

	params := analysis.Params{
		Encoder:       analysis.Encoder(tpl.Encoder),
		EncoderParams: tpl.EncoderParams,
		Metrics:       tpl.Metrics,
		OutputDir:     outputDir,
		RawInput:      strings.EqualFold(filepath.Ext(job.Source), ".yuv"),
	}

	summary, execErr := o.executor.Execute(ctx, job, params)
	switch {
	case execErr == nil:
		if err := o.store.MarkCompleted(storeCtx, job.ID, summary); err != nil {
			o.logger.Warn("completion update failed",
				logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
		result.Status = jobs.StatusCompleted
		result.Summary = summary

	case services.Kind(execErr) == services.KindCancelled:
		if err := o.store.MarkCancelled(storeCtx, job.ID); err != nil {
			o.logger.Warn("cancel update failed",
				logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
		result.Status = jobs.StatusCancelled
		result.ErrorKind = services.KindCancelled
		result.ErrorMessage = execErr.Error()

	default:
		kind := services.Kind(execErr)
		if err := o.store.MarkFailed(storeCtx, job.ID, kind, execErr.Error()); err != nil {
			o.logger.Warn("failure update failed",
				logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
		result.Status = jobs.StatusFailed
		result.ErrorKind = kind
		result.ErrorMessage = execErr.Error()
		o.logger.Warn("job failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldSource, job.Source),
			logging.String("kind", kind))
	}

	return result
}

// acquireRunLock takes the jobs-root file lock so two batches never share
// output directories or saturate the host together.
func (o *Orchestrator) acquireRunLock() (func(), error) {
	if err := os.MkdirAll(o.cfg.Paths.JobsRoot, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "batch", "run lock", o.cfg.Paths.JobsRoot, err)
	}
	lock := flock.New(filepath.Join(o.cfg.Paths.JobsRoot, "run.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "batch", "run lock", "lock acquisition failed", err)
	}
	if !acquired {
		return nil, services.Wrap(services.ErrTransient, "batch", "run lock",
			"another batch is already running against this jobs root", nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
