//go:build unix

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Set places the command in its own process group so that signals aimed at
// the tool also reach any children it spawns.
func Set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillGroup terminates the process group rooted at pid. It sends SIGTERM
// first, waits up to grace for the group to exit, then escalates to SIGKILL.
func KillGroup(pid int, grace time.Duration) {
	if pid <= 0 {
		return
	}
	_ = unix.Kill(-pid, unix.SIGTERM)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		// Signal 0 probes for liveness without delivering anything.
		if err := unix.Kill(-pid, 0); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
}
