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

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv(tokenEnv, "sk-from-env")

	cfg, err := LoadFile(writeConfig(t, "server:\n  listen: \":9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "sk-from-env", cfg.Model.Token)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
	assert.Equal(t, 2000, cfg.Document.ContextMaxChars)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 64, cfg.Engine.QueueSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile_Overrides(t *testing.T) {
	t.Setenv(tokenEnv, "sk-from-env")

	cfg, err := LoadFile(writeConfig(t, `
model:
  token: sk-file
  model: gpt-4o
  timeout: 15s
document:
  context_max_chars: 500
session:
  ttl: 5m
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.Model.Token)
	assert.Equal(t, "gpt-4o", cfg.Model.Model)
	assert.Equal(t, 15*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 500, cfg.Document.ContextMaxChars)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
}

func TestLoadFile_MissingToken(t *testing.T) {
	t.Setenv(tokenEnv, "")

	_, err := LoadFile(writeConfig(t, "server:\n  listen: \":9000\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
}

func TestLoadFile_BadLevel(t *testing.T) {
	t.Setenv(tokenEnv, "sk")

	_, err := LoadFile(writeConfig(t, "log:\n  level: verbose\n"))
	require.Error(t, err)
}

func TestLoadFile_NoFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
