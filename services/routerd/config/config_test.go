package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesDurationsAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routerd.yaml")
	contents := `
listen: ":9100"
database: "/tmp/routerd-test.db"
shutdown_grace: "30s"
telemetry:
  endpoint: "collector:4318"
  insecure: true
  metrics: true
log:
  file: "/var/log/routerd.log"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.ListenAddress)
	require.Equal(t, 30*time.Second, cfg.ShutdownGrace.Duration)
	// Unset fields fall back to defaults.
	require.Equal(t, 15*time.Second, cfg.ReadTimeout.Duration)
	require.Equal(t, 100, cfg.Log.MaxSizeMB)
	require.True(t, cfg.Telemetry.Insecure)
	require.Equal(t, "collector:4318", cfg.Telemetry.Endpoint)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routerd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shutdown_grace: \"soon\"\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
