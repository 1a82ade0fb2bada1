package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeTestConfig materializes a config file rooted in a temp dir and returns
// its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
jobs_root = %q
output_dir = %q
log_dir = %q
`, filepath.Join(base, "jobs"), filepath.Join(base, "out"), filepath.Join(base, "logs"))

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(raw), "[tools]") {
		t.Fatalf("sample config missing tools section:\n%s", raw)
	}

	// A second init must refuse to overwrite.
	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("config init should refuse to overwrite")
	}
}

func TestConfigValidate(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "configuration OK") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestResolveCommandListsFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mkv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	out, err := execute(t, "resolve", dir)
	if err != nil {
		t.Fatalf("resolve failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "a.mkv") || !strings.Contains(out, "b.mp4") {
		t.Fatalf("resolved files missing: %s", out)
	}
	if strings.Contains(out, "notes.txt") {
		t.Fatalf("non-video file resolved: %s", out)
	}
}

func TestBDCommand(t *testing.T) {
	dir := t.TempDir()
	curve := `{"name": %q, "points": [
		{"bitrate": 1000, "quality": 38.0},
		{"bitrate": 2000, "quality": 41.5},
		{"bitrate": 4000, "quality": 44.2},
		{"bitrate": 8000, "quality": 46.1}
	]}`
	basePath := filepath.Join(dir, "base.json")
	testPath := filepath.Join(dir, "test.json")
	if err := os.WriteFile(basePath, []byte(fmt.Sprintf(curve, "base")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(testPath, []byte(fmt.Sprintf(curve, "test")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, "bd", basePath, testPath)
	if err != nil {
		t.Fatalf("bd failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "BD-Rate:   +0.00%") {
		t.Fatalf("identical curves should report zero BD-Rate: %s", out)
	}
}

func TestBDCommandRejectsShortCurve(t *testing.T) {
	dir := t.TempDir()
	short := `{"points": [{"bitrate": 1000, "quality": 38.0}]}`
	path := filepath.Join(dir, "short.json")
	if err := os.WriteFile(path, []byte(short), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "bd", path, path); err == nil {
		t.Fatal("bd should reject a one-point curve")
	}
}

func TestTemplateLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "template", "add", "sweep",
		"--source", "/media/clips", "--encoder", "x264", "--metrics", "psnr,vmaf", "--parallel", "2")
	if err != nil {
		t.Fatalf("template add failed: %v\n%s", err, out)
	}

	out, err = execute(t, "--config", cfgPath, "template", "list")
	if err != nil {
		t.Fatalf("template list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "sweep") || !strings.Contains(out, "x264") {
		t.Fatalf("template missing from list: %s", out)
	}

	if out, err = execute(t, "--config", cfgPath, "template", "remove", "sweep"); err != nil {
		t.Fatalf("template remove failed: %v\n%s", err, out)
	}
	out, err = execute(t, "--config", cfgPath, "template", "list")
	if err != nil {
		t.Fatalf("template list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "no templates") {
		t.Fatalf("template should be gone: %s", out)
	}
}

func TestTemplateAddRejectsUnknownEncoder(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := execute(t, "--config", cfgPath, "template", "add", "bad",
		"--source", "/media", "--encoder", "av1-magic"); err == nil {
		t.Fatal("unknown encoder should be rejected")
	}
}

func TestJobsListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "no jobs") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestSweepOnEmptyStore(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "sweep")
	if err != nil {
		t.Fatalf("sweep failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "removed 0 job(s)") {
		t.Fatalf("unexpected output: %s", out)
	}
}
