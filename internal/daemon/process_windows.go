//go:build windows

package daemon

import (
	"os"
	"os/exec"
)

// setSysProcAttr is a no-op on Windows (Setsid not available).
func setSysProcAttr(_ *exec.Cmd) {}

// findAliveProcess resolves a PID to a running process. On Windows
// FindProcess opens a handle, so its failure is the liveness probe; signal 0
// is not supported here.
func findAliveProcess(pid int) (*os.Process, bool) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil, false
	}
	return process, true
}

// termSignal returns the signal used for graceful shutdown.
// On Windows, os.Kill is the only reliable signal.
func termSignal() os.Signal {
	return os.Kill
}
