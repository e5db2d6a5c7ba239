//go:build integration

package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// binaryPath returns the path to the built CLI binary
func binaryPath(t *testing.T) string {
	t.Helper()
	paths := []string{
		"../loadspike",
		"./loadspike",
		filepath.Join(os.Getenv("GOPATH"), "bin", "loadspike"),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}

	t.Log("Binary not found, building...")
	cmd := exec.Command("go", "build", "-o", "../loadspike", "../cmd/loadspike")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}

	abs, _ := filepath.Abs("../loadspike")
	return abs
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath(t), args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestCLI_Help(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v\n%s", err, out)
	}
	for _, sub := range []string{"run", "plan", "probe", "history", "serve", "schedule", "watch"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}

func TestCLI_Probe(t *testing.T) {
	cfg := createTestConfig(t, TempDBPath(t), filepath.Join(t.TempDir(), "schedule.toml"))

	out, err := runCLI(t, "--config", cfg, "probe", "--output", "json")
	if err != nil {
		t.Fatalf("probe failed: %v\n%s", err, out)
	}

	var snapshot struct {
		LogicalCores     int    `json:"logical_cores"`
		TotalMemoryBytes uint64 `json:"total_memory_bytes"`
	}
	if err := json.Unmarshal([]byte(out), &snapshot); err != nil {
		t.Fatalf("probe output is not JSON: %v\n%s", err, out)
	}
	if snapshot.LogicalCores < 1 || snapshot.TotalMemoryBytes == 0 {
		t.Errorf("implausible capacity: %+v", snapshot)
	}
}

func TestCLI_Plan(t *testing.T) {
	cfg := createTestConfig(t, TempDBPath(t), filepath.Join(t.TempDir(), "schedule.toml"))

	out, err := runCLI(t, "--config", cfg, "plan")
	if err != nil {
		t.Fatalf("plan failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Plan (not executed)") {
		t.Errorf("unexpected plan output:\n%s", out)
	}
}

func TestCLI_RunThenHistory(t *testing.T) {
	dbPath := TempDBPath(t)
	cfg := createTestConfig(t, dbPath, filepath.Join(t.TempDir(), "schedule.toml"))

	out, err := runCLI(t, "--config", cfg, "run", "--output", "json")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	// log lines go to stderr; the report is the last JSON object
	start := strings.Index(out, "{\n")
	if start < 0 {
		t.Fatalf("no JSON report in output:\n%s", out)
	}
	var report struct {
		ID                 string `json:"id"`
		Completed          bool   `json:"completed"`
		RunDurationSeconds int    `json:"run_duration_seconds"`
	}
	if err := json.Unmarshal([]byte(out[start:]), &report); err != nil {
		t.Fatalf("run output is not JSON: %v\n%s", err, out)
	}
	if !report.Completed {
		t.Error("report not completed")
	}
	if report.RunDurationSeconds != 1 {
		t.Errorf("RunDurationSeconds = %d, want 1", report.RunDurationSeconds)
	}

	out, err = runCLI(t, "--config", cfg, "history")
	if err != nil {
		t.Fatalf("history failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, report.ID) {
		t.Errorf("history does not list run %s:\n%s", report.ID, out)
	}
	if !strings.Contains(out, "1 runs recorded") {
		t.Errorf("history stats missing:\n%s", out)
	}
}

func TestCLI_ScheduleList(t *testing.T) {
	schedulePath := filepath.Join(t.TempDir(), "schedule.toml")
	if err := os.WriteFile(schedulePath, []byte("[[spike]]\nname = \"nightly\"\ncron = \"0 3 * * *\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := createTestConfig(t, TempDBPath(t), schedulePath)

	out, err := runCLI(t, "--config", cfg, "schedule", "--list")
	if err != nil {
		t.Fatalf("schedule --list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "nightly") || !strings.Contains(out, "0 3 * * *") {
		t.Errorf("unexpected schedule listing:\n%s", out)
	}
}

func TestCLI_InvalidOutput(t *testing.T) {
	cfg := createTestConfig(t, TempDBPath(t), filepath.Join(t.TempDir(), "schedule.toml"))

	out, err := runCLI(t, "--config", cfg, "run", "--output", "xml")
	if err == nil {
		t.Fatalf("expected failure for unknown output format:\n%s", out)
	}
}
