package jobs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vqa/internal/jobs"
	"vqa/internal/metrics"
)

func openStore(t *testing.T) *jobs.Store {
	t.Helper()
	store, err := jobs.OpenPath(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGetJob(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{Mode: jobs.ModeSingleFile, Template: "h264-sweep", Source: "/media/a.mp4"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job ID not assigned")
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Source != "/media/a.mp4" || got.Template != "h264-sweep" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.StartedAt != nil || got.FinishedAt != nil {
		t.Fatal("fresh job should have no started/finished timestamps")
	}
}

func TestGetJobNotFound(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetJob(context.Background(), "nope"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobLifecycleHappyPath(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{Source: "/media/a.mp4"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}

	summary := &metrics.Summary{FrameCount: 100, ThroughputFPS: 25.0}
	if err := store.MarkCompleted(ctx, job.ID, summary); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Fatal("terminal job missing timestamps")
	}
	if got.Summary == nil || got.Summary.FrameCount != 100 {
		t.Fatalf("summary = %+v", got.Summary)
	}
	if got.ErrorKind != "" {
		t.Fatalf("completed job should carry no error, got %q", got.ErrorKind)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{Source: "/media/a.mp4"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "timeout", "exceeded 10m"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	if err := store.MarkCompleted(ctx, job.ID, &metrics.Summary{}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := store.MarkRunning(ctx, job.ID); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != jobs.StatusFailed || got.ErrorKind != "timeout" {
		t.Fatalf("job = %+v", got)
	}
	if got.Summary != nil {
		t.Fatal("failed job must not carry a summary")
	}
}

func TestCompleteRequiresRunning(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{Source: "/media/a.mp4"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, job.ID, &metrics.Summary{}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("pending to completed should be rejected, got %v", err)
	}
}

func TestCancelPendingSkipsRunning(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{Source: "/media/a.mp4"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.MarkCancelled(ctx, job.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if got.StartedAt != nil {
		t.Fatal("cancelled-while-pending job must never look started")
	}
}

func TestValidTransitionTable(t *testing.T) {
	cases := []struct {
		from, to jobs.Status
		want     bool
	}{
		{jobs.StatusPending, jobs.StatusRunning, true},
		{jobs.StatusPending, jobs.StatusCancelled, true},
		{jobs.StatusPending, jobs.StatusCompleted, false},
		{jobs.StatusPending, jobs.StatusFailed, false},
		{jobs.StatusRunning, jobs.StatusCompleted, true},
		{jobs.StatusRunning, jobs.StatusFailed, true},
		{jobs.StatusRunning, jobs.StatusCancelled, true},
		{jobs.StatusRunning, jobs.StatusPending, false},
		{jobs.StatusCompleted, jobs.StatusFailed, false},
		{jobs.StatusCancelled, jobs.StatusRunning, false},
	}
	for _, tc := range cases {
		if got := jobs.ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCommandLogAppends(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job := &jobs.Job{Source: "/media/a.mp4"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	first := jobs.CommandLogEntry{Type: "encode", Argv: []string{"ffmpeg", "-i", "a.mp4"}, Status: "completed", StartedAt: time.Now().UTC()}
	second := jobs.CommandLogEntry{Type: "vmaf", Argv: []string{"ffmpeg"}, Status: "failed", StartedAt: time.Now().UTC(), Error: "exit 1"}
	if err := store.AppendCommandLog(ctx, job.ID, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := store.AppendCommandLog(ctx, job.ID, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if len(got.CommandLog) != 2 {
		t.Fatalf("command log length = %d, want 2", len(got.CommandLog))
	}
	if got.CommandLog[0].Type != "encode" || got.CommandLog[1].Error != "exit 1" {
		t.Fatalf("command log = %+v", got.CommandLog)
	}
}

func TestListJobsFiltersByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	done := &jobs.Job{Source: "/media/a.mp4"}
	pending := &jobs.Job{Source: "/media/b.mp4"}
	for _, job := range []*jobs.Job{done, pending} {
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
	}
	if err := store.MarkRunning(ctx, done.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, done.ID, &metrics.Summary{}); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	completed, err := store.ListJobs(ctx, jobs.StatusCompleted)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Fatalf("completed list = %+v", completed)
	}

	all, err := store.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all list length = %d, want 2", len(all))
	}
}

func TestTemplateRoundtripAndRemove(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	tpl := &jobs.Template{
		Name:          "h264-sweep",
		SourceSpec:    "/media/clips",
		Encoder:       "x264",
		EncoderParams: "--preset slow --crf 23",
		Metrics:       []string{"psnr", "ssim", "vmaf"},
		ParallelJobs:  4,
	}
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	got, err := store.GetTemplate(ctx, "h264-sweep")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.Encoder != "x264" || len(got.Metrics) != 3 || got.ParallelJobs != 4 {
		t.Fatalf("template = %+v", got)
	}

	// Upsert by name updates in place.
	tpl.EncoderParams = "--preset veryslow --crf 20"
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("SaveTemplate update failed: %v", err)
	}
	updated, err := store.GetTemplate(ctx, "h264-sweep")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if updated.EncoderParams != "--preset veryslow --crf 20" {
		t.Fatalf("params = %q", updated.EncoderParams)
	}

	if err := store.RemoveTemplate(ctx, "h264-sweep"); err != nil {
		t.Fatalf("RemoveTemplate failed: %v", err)
	}
	if _, err := store.GetTemplate(ctx, "h264-sweep"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveTemplateKeepsJobs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.SaveTemplate(ctx, &jobs.Template{Name: "keep", SourceSpec: "/media", Encoder: "ffmpeg", Metrics: []string{"psnr"}}); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	job := &jobs.Job{Source: "/media/a.mp4", Template: "keep"}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.RemoveTemplate(ctx, "keep"); err != nil {
		t.Fatalf("RemoveTemplate failed: %v", err)
	}
	if _, err := store.GetJob(ctx, job.ID); err != nil {
		t.Fatalf("job should survive template removal: %v", err)
	}
}

func TestSweepExpiredRemovesTerminalJobsAndDirs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	jobDir := filepath.Join(t.TempDir(), "job-1")
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	expired := &jobs.Job{Source: "/media/a.mp4", JobDir: jobDir}
	if err := store.CreateJob(ctx, expired); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := store.MarkRunning(ctx, expired.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, expired.ID, &metrics.Summary{}); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	fresh := &jobs.Job{Source: "/media/b.mp4"}
	if err := store.CreateJob(ctx, fresh); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	removed, err := store.SweepExpired(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(jobDir); !os.IsNotExist(err) {
		t.Fatalf("job dir should be gone, stat err = %v", err)
	}
	if _, err := store.GetJob(ctx, expired.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expired job should be deleted, got %v", err)
	}
	if _, err := store.GetJob(ctx, fresh.ID); err != nil {
		t.Fatalf("pending job must survive sweep: %v", err)
	}
}
