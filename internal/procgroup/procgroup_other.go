//go:build !unix

package procgroup

import (
	"os"
	"os/exec"
	"time"
)

// Set is a no-op on platforms without process groups.
func Set(cmd *exec.Cmd) {}

// KillGroup falls back to killing the single process.
func KillGroup(pid int, grace time.Duration) {
	if pid <= 0 {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Kill()
	}
}
