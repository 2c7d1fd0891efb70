//go:build !windows

package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the child process from the parent session so the
// daemon survives the launching terminal.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

// findAliveProcess resolves a PID to a running process. FindProcess always
// succeeds on Unix, so liveness is probed with signal 0.
func findAliveProcess(pid int) (*os.Process, bool) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil, false
	}
	if process.Signal(syscall.Signal(0)) != nil {
		return nil, false
	}
	return process, true
}

// termSignal returns the signal used for graceful shutdown.
func termSignal() os.Signal {
	return syscall.SIGTERM
}
