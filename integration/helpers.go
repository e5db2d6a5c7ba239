//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "runs.db")
}

// TempConfigPath creates a temporary config file path for testing
func TempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.toml")
}

// createTestConfig writes a config whose spikes are tiny and last one second
func createTestConfig(t *testing.T, dbPath, schedulePath string) string {
	t.Helper()
	configPath := TempConfigPath(t)

	config := `[general]
database_path = "` + dbPath + `"

[spike]
min_intensity = 0.01
max_intensity = 0.02
min_duration_secs = 1
max_duration_secs = 1
min_memory_per_worker_mb = 1
max_memory_workers = 2
join_grace_secs = 5
memory_ceiling_percent = 50

[notifications]
desktop = false

[web]
host = "127.0.0.1"
port = 0

[logging]
level = "warning"
format = "text"

[schedule]
file = "` + schedulePath + `"
`

	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	return configPath
}
