package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testConfigYAML returns a minimal valid configuration pointing at the
// given database path. MQTT and InfluxDB stay disabled so the test has
// no external dependencies.
func testConfigYAML(dbPath string) string {
	return `
site:
  id: test-site

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18080
  timeouts:
    read: 30
    write: 60
    idle: 120

security:
  jwt:
    secret: "test-secret-for-development-only"
  rate_limit:
    enabled: true
    max_failures: 5
    window_seconds: 600
`
}

func setConfigEnv(t *testing.T, path string) {
	t.Helper()
	original := os.Getenv("CRYOTRACK_CONFIG")
	t.Cleanup(func() { os.Setenv("CRYOTRACK_CONFIG", original) })
	os.Setenv("CRYOTRACK_CONFIG", path)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	setConfigEnv(t, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	if err := os.WriteFile(configPath, []byte(testConfigYAML("")), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	setConfigEnv(t, configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	original := os.Getenv("CRYOTRACK_CONFIG")
	defer os.Setenv("CRYOTRACK_CONFIG", original)
	os.Unsetenv("CRYOTRACK_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	setConfigEnv(t, expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown tests a full startup with optional backends
// disabled, then a clean shutdown via context cancellation.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	if err := os.WriteFile(configPath, []byte(testConfigYAML(dbPath)), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	setConfigEnv(t, configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v, want clean shutdown", err)
	}

	// The database file should exist after a successful startup.
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
