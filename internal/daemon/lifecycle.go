package daemon

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/timestone/timestone/internal/config"
)

const defaultPort = 8462

// Lifecycle tracks a machine-wide daemon process through a PID file and
// the HTTP health endpoint. A PID alone is not trusted; the daemon only
// counts as running when the health check also answers.
type Lifecycle struct {
	settings config.DaemonSettings
	pidFile  string
}

// NewLifecycle creates a lifecycle manager using the default PID file
// location under the user's home directory.
func NewLifecycle(settings config.DaemonSettings) *Lifecycle {
	homeDir, _ := os.UserHomeDir()
	return &Lifecycle{
		settings: settings,
		pidFile:  filepath.Join(homeDir, ".timestone", "daemon.pid"),
	}
}

// PIDFile returns the path of the PID file.
func (l *Lifecycle) PIDFile() string {
	return l.pidFile
}

// IsRunning reports whether a healthy daemon process exists. A stale
// PID file left by a dead process is removed as a side effect.
func (l *Lifecycle) IsRunning() bool {
	pid, err := l.readPIDFile()
	if err != nil {
		return false
	}

	if _, alive := findAliveProcess(pid); !alive {
		_ = os.Remove(l.pidFile)
		return false
	}

	return l.healthCheck()
}

// GetPID returns the daemon's PID, or an error when it is not running.
func (l *Lifecycle) GetPID() (int, error) {
	if !l.IsRunning() {
		return 0, fmt.Errorf("daemon is not running")
	}
	return l.readPIDFile()
}

// StartInBackground re-executes the current binary as a detached child
// and waits for it to pass a health check.
func (l *Lifecycle) StartInBackground() error {
	if l.IsRunning() {
		return fmt.Errorf("daemon is already running")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to find executable: %w", err)
	}

	cmd := exec.Command(executable, "daemon", "start", "--background-child")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Poll rather than sleep once so a fast startup returns promptly.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if l.IsRunning() {
			return nil
		}
	}

	return fmt.Errorf("daemon failed to start")
}

// Stop terminates the running daemon, escalating to a hard kill if it
// does not exit within three seconds.
func (l *Lifecycle) Stop() error {
	pid, err := l.readPIDFile()
	if err != nil {
		return fmt.Errorf("daemon is not running: %w", err)
	}

	process, alive := findAliveProcess(pid)
	if !alive {
		_ = os.Remove(l.pidFile)
		return nil
	}

	if err := process.Signal(termSignal()); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if _, alive := findAliveProcess(pid); !alive {
			_ = os.Remove(l.pidFile)
			return nil
		}
	}

	_ = process.Kill()
	_ = os.Remove(l.pidFile)
	return nil
}

// WritePID records the current process in the PID file.
func (l *Lifecycle) WritePID() error {
	if err := os.MkdirAll(filepath.Dir(l.pidFile), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(l.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// RemovePID deletes the PID file.
func (l *Lifecycle) RemovePID() error {
	return os.Remove(l.pidFile)
}

func (l *Lifecycle) readPIDFile() (int, error) {
	data, err := os.ReadFile(l.pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

func (l *Lifecycle) healthCheck() bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", l.Port()))
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Port returns the configured daemon port, falling back to the default.
func (l *Lifecycle) Port() int {
	if l.settings.Port == 0 {
		return defaultPort
	}
	return l.settings.Port
}
