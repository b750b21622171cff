package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "memory", cfg.Session.Type)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, 5, cfg.OTP.SendLimit)
	assert.Equal(t, time.Hour, cfg.OTP.SendWindow)
	assert.Equal(t, "log", cfg.SMS.Provider)
	assert.Equal(t, "portal_identity", cfg.Metrics.Namespace)

	// an omitted permission block means live recompute
	assert.True(t, cfg.Permission.Recompute())
}

func TestPermissionRecomputeOptOut(t *testing.T) {
	path := writeConfig(t, "permission:\n  recompute_per_request: false\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Permission.Recompute())
}

func TestLoadConfigEnvResolution(t *testing.T) {
	t.Setenv("TEST_IDENTITY_PORT", "7070")
	os.Unsetenv("TEST_IDENTITY_DB_TYPE")

	path := writeConfig(t, `
server:
  port: ${TEST_IDENTITY_PORT:8080}
database:
  type: "${TEST_IDENTITY_DB_TYPE:postgres}"
  host: "${TEST_IDENTITY_DB_HOST:db.internal}"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)         // env wins
	assert.Equal(t, "postgres", cfg.Database.Type) // default applies
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	pg := &DatabaseConfig{
		Type: "postgres", Host: "localhost", Port: 5432,
		User: "portal", Password: "pw", DBName: "portal", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://portal:pw@localhost:5432/portal?sslmode=disable", pg.GetDSN())

	my := &DatabaseConfig{
		Type: "mysql", Host: "localhost", Port: 3306,
		User: "portal", Password: "pw", DBName: "portal",
	}
	assert.Equal(t, "portal:pw@tcp(localhost:3306)/portal?charset=utf8mb4&parseTime=True&loc=Local", my.GetDSN())

	lite := &DatabaseConfig{Type: "sqlite", DBName: ":memory:"}
	assert.Equal(t, ":memory:", lite.GetDSN())
}
