package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var binaryPath string

func TestMain(m *testing.M) {
	projectRoot := getProjectRoot()

	// Build the binary before running tests
	binaryPath = filepath.Join(projectRoot, "timestone_test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/timestone")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		panic("Failed to build binary: " + err.Error() + "\nOutput: " + string(output))
	}

	code := m.Run()

	_ = os.Remove(binaryPath)
	os.Exit(code)
}

func getProjectRoot() string {
	wd, _ := os.Getwd()
	return filepath.Join(wd, "..", "..")
}

func runTimestone(args ...string) (string, string, error) {
	cmd := exec.Command(binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig points the store at a throwaway database so tests never
// touch ~/.timestone.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`version: "1"
settings:
  log_level: error
  store:
    path: %s
`, filepath.Join(dir, "events.sqlite3"))
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return cfgPath
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runTimestone("version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(stdout, "timestone") {
		t.Errorf("Unexpected version output: %q", stdout)
	}
}

func TestSessionsEmptyStore(t *testing.T) {
	cfg := writeTestConfig(t)

	stdout, stderr, err := runTimestone("sessions", "-c", cfg)
	if err != nil {
		t.Fatalf("sessions failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "No sessions recorded") {
		t.Errorf("Unexpected output: %q", stdout)
	}
}

func TestEventsRequiresSession(t *testing.T) {
	cfg := writeTestConfig(t)

	_, stderr, err := runTimestone("events", "-c", cfg)
	if err == nil {
		t.Fatal("Expected error without --session")
	}
	if !strings.Contains(stderr, "session") {
		t.Errorf("Unexpected stderr: %q", stderr)
	}
}

func TestScanCommand(t *testing.T) {
	cfg := writeTestConfig(t)

	captureDir := t.TempDir()
	for _, name := range []string{"2025-03-14 09-26-53.mkv", "2025-03-14 10-00-00.mkv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(captureDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	stdout, stderr, err := runTimestone("scan", captureDir, "-c", cfg)
	if err != nil {
		t.Fatalf("scan failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "2 of 2 recordings in range") {
		t.Errorf("Unexpected output: %q", stdout)
	}
	if !strings.Contains(stdout, "filename") {
		t.Errorf("Expected filename-sourced start times, got: %q", stdout)
	}
}

func TestScanCommandNoFolder(t *testing.T) {
	cfg := writeTestConfig(t)

	_, _, err := runTimestone("scan", "-c", cfg)
	if err == nil {
		t.Fatal("Expected error without a folder")
	}
}

func TestDaemonStatusNotRunning(t *testing.T) {
	// Point the daemon at a config with no PID file state; status should
	// report cleanly rather than fail.
	cfg := writeTestConfig(t)

	stdout, stderr, err := runTimestone("daemon", "status", "-c", cfg)
	if err != nil {
		t.Fatalf("daemon status failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "not running") && !strings.Contains(stdout, "running") {
		t.Errorf("Unexpected output: %q", stdout)
	}
}
