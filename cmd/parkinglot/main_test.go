package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/parkinglot-core/internal/auth"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// writeConfig writes a broker-free config and returns its path.
func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := fmt.Sprintf(`
lot:
  id: test-lot
  slots: ["A1", "A2", "A3"]

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 5
    write: 5
    idle: 5

gate:
  base_url: "http://127.0.0.1:1"
  timeout: 1s

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

security:
  jwt:
    secret: %q
    access_token_ttl: 15
`, dbPath, freePort(t), testSecret)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PARKINGLOT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies validation rejects an empty database path.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("PARKINGLOT_CONFIG", writeConfig(t, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "database.path") {
		t.Fatalf("run() error = %v, want database.path validation error", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("PARKINGLOT_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("PARKINGLOT_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}

// TestRun_StartupAndShutdown runs the whole service without MQTT or InfluxDB
// and shuts it down when the context expires.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv("PARKINGLOT_CONFIG", writeConfig(t, dbPath))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestRunToken(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "test.db"))

	var out bytes.Buffer
	if err := runToken([]string{"--config", configPath, "--subject", "alice", "--role", "operator"}, &out); err != nil {
		t.Fatalf("runToken() error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "alice" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}

	if err := runToken([]string{"--config", configPath, "--role", "janitor"}, &out); err == nil {
		t.Error("runToken() accepted an unknown role")
	}
}
