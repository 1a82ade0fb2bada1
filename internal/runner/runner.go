package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"vqa/internal/logging"
	"vqa/internal/metrics"
	"vqa/internal/procgroup"
	"vqa/internal/services"
)

// commandContext is swapped during tests so runs can be pointed at stub
// binaries.
var commandContext = exec.CommandContext

// maxStderrTail bounds how much tool stderr is retained for diagnostics.
// Long-running encoders can emit megabytes of progress lines; the useful part
// is the end.
const maxStderrTail = 64 * 1024

// killGrace is how long a signalled process group gets before SIGKILL.
const killGrace = 2 * time.Second

// Command describes one external tool invocation.
type Command struct {
	// Name labels the run in logs and error messages, e.g. "ffmpeg-psnr".
	Name   string
	Binary string
	Args   []string
	Dir    string
	// Env entries are appended to the inherited environment.
	Env []string
	// Timeout bounds the run; zero means the caller's context alone governs.
	Timeout time.Duration
	// SampleInterval enables periodic CPU sampling of the tool process when
	// positive.
	SampleInterval time.Duration
}

// Result captures the observable outcome of a tool run. It is returned even
// when the run failed so callers can inspect timing and output.
type Result struct {
	Stdout     string
	StderrTail string
	ExitCode   int
	Elapsed    time.Duration
	CPUSamples []metrics.CPUSample
}

// Runner executes external tools with timeout enforcement, process-group
// cleanup, and optional CPU sampling.
type Runner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Runner {
	return &Runner{logger: logging.NewComponentLogger(logger, "runner")}
}

// Run starts the command and waits for it to finish. Failures carry a
// classification marker: ErrTimeout when the command's own deadline expired,
// ErrCancelled when the caller's context was cancelled, ErrTool for a
// non-zero exit.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "runner", cmd.Name, "no binary configured", nil)
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := commandContext(runCtx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout bytes.Buffer
	stderr := &tailBuffer{max: maxStderrTail}
	c.Stdout = &stdout
	c.Stderr = stderr

	procgroup.Set(c)
	c.Cancel = func() error {
		if c.Process != nil {
			procgroup.KillGroup(c.Process.Pid, killGrace)
		}
		return os.ErrProcessDone
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, services.Wrap(services.ErrTool, "runner", cmd.Name,
			fmt.Sprintf("failed to start %s", cmd.Binary), err)
	}

	r.logger.Debug("tool started",
		logging.String("name", cmd.Name),
		logging.String("binary", cmd.Binary),
		logging.Int("pid", c.Process.Pid))

	var sampler *cpuSampler
	if cmd.SampleInterval > 0 {
		sampler = startCPUSampler(c.Process.Pid, cmd.SampleInterval)
	}

	waitErr := c.Wait()
	elapsed := time.Since(start)

	result := &Result{
		Stdout:     stdout.String(),
		StderrTail: stderr.String(),
		Elapsed:    elapsed,
	}
	if sampler != nil {
		result.CPUSamples = sampler.stop()
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	switch {
	case runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		r.logger.Warn("tool timed out",
			logging.String("name", cmd.Name),
			logging.Duration("elapsed", elapsed))
		return result, services.Wrap(services.ErrTimeout, "runner", cmd.Name,
			fmt.Sprintf("exceeded %s", cmd.Timeout), nil)
	case ctx.Err() != nil:
		return result, services.Wrap(services.ErrCancelled, "runner", cmd.Name, "run cancelled", ctx.Err())
	case waitErr != nil:
		r.logger.Warn("tool failed",
			logging.String("name", cmd.Name),
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("elapsed", elapsed))
		return result, services.Wrap(services.ErrTool, "runner", cmd.Name,
			fmt.Sprintf("exit code %d: %s", result.ExitCode, condense(result.StderrTail)), nil)
	}

	r.logger.Debug("tool finished",
		logging.String("name", cmd.Name),
		logging.Duration("elapsed", elapsed),
		logging.Int("cpu_samples", len(result.CPUSamples)))
	return result, nil
}

// condense squeezes a stderr tail into a single log-friendly line.
func condense(s string) string {
	const limit = 512
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\n' || b == '\r' || b == '\t' {
			b = ' '
		}
		out = append(out, b)
	}
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) > limit {
		trimmed = trimmed[len(trimmed)-limit:]
	}
	return string(trimmed)
}

// tailBuffer is an io.Writer that keeps only the last max bytes written.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.max:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }

// cpuSampler polls the process's CPU usage on a fixed interval.
type cpuSampler struct {
	samples chan []metrics.CPUSample
	done    chan struct{}
}

func startCPUSampler(pid int, interval time.Duration) *cpuSampler {
	s := &cpuSampler{
		samples: make(chan []metrics.CPUSample, 1),
		done:    make(chan struct{}),
	}
	go s.loop(pid, interval)
	return s
}

func (s *cpuSampler) loop(pid int, interval time.Duration) {
	var collected []metrics.CPUSample
	defer func() { s.samples <- collected }()

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}
	// Prime the delta so the first tick reports usage since start rather
	// than since boot.
	_, _ = proc.Percent(0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			pct, err := proc.Percent(0)
			if err != nil {
				// Process exited between ticks.
				return
			}
			collected = append(collected, metrics.CPUSample{At: time.Now(), Percent: pct})
		}
	}
}

func (s *cpuSampler) stop() []metrics.CPUSample {
	close(s.done)
	return <-s.samples
}
