package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vqa/internal/envinfo"
	"vqa/internal/jobs"
	"vqa/internal/metrics"
)

// ReportFileName is the machine-readable batch report written next to the
// encoded outputs.
const ReportFileName = "analyse_data.json"

// FileResult is one source file's outcome within a batch, in input order.
type FileResult struct {
	Index        int              `json:"index"`
	Source       string           `json:"source"`
	JobID        string           `json:"job_id"`
	Status       jobs.Status      `json:"status"`
	Summary      *metrics.Summary `json:"summary,omitempty"`
	ErrorKind    string           `json:"error_kind,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// Report aggregates a finished batch. Results are ordered by resolved input
// position regardless of completion order.
type Report struct {
	Template   string           `json:"template"`
	SourceSpec string           `json:"source_spec"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Environment envinfo.Snapshot `json:"environment"`
	Warnings   []string         `json:"warnings,omitempty"`

	TotalFiles int `json:"total_files"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`

	AverageThroughputFPS *float64 `json:"average_throughput_fps,omitempty"`
	AverageBitRateBPS    *float64 `json:"average_bitrate_bps,omitempty"`

	Results []FileResult `json:"results"`
}

// tally fills the count and average fields from the per-file results.
func (r *Report) tally() {
	var (
		throughputs []float64
		bitrates    []float64
	)
	r.Successful, r.Failed, r.Cancelled = 0, 0, 0
	for _, result := range r.Results {
		switch result.Status {
		case jobs.StatusCompleted:
			r.Successful++
			if result.Summary != nil {
				if result.Summary.ThroughputFPS > 0 {
					throughputs = append(throughputs, result.Summary.ThroughputFPS)
				}
				if result.Summary.BitRateBPS > 0 {
					bitrates = append(bitrates, float64(result.Summary.BitRateBPS))
				}
			}
		case jobs.StatusCancelled:
			r.Cancelled++
		default:
			r.Failed++
		}
	}
	r.AverageThroughputFPS = mean(throughputs)
	r.AverageBitRateBPS = mean(bitrates)
}

// Write persists the report as indented JSON.
func (r *Report) Write(path string) error {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write batch report: %w", err)
	}
	return nil
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	m := total / float64(len(values))
	return &m
}
