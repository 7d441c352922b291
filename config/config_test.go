package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	c, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":4000", c.Server.Port)
	assert.Equal(t, "memory", c.Matchmaker.Archive)
	assert.Equal(t, 6, c.Matchmaker.Password.Length)
	assert.Equal(t, time.Hour, c.Matchmaker.Password.Retention)
	assert.Equal(t, 24*time.Hour, c.JWT.TTL)
}

func TestLoadFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: ":9000"
matchmaker:
  archive: redis
  bosses: [Alpha, Beta]
  compositions:
    - [A, B, C]
  password:
    retention: 30m
voice:
  enabled: true
  ttl: 45m
metrics:
  adminKey: s3cret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Server.Port)
	assert.Equal(t, "redis", c.Matchmaker.Archive)
	assert.Equal(t, []string{"Alpha", "Beta"}, c.Matchmaker.Bosses)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, c.Matchmaker.Compositions)
	assert.Equal(t, 30*time.Minute, c.Matchmaker.Password.Retention)
	// 未覆盖的字段保持默认
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", c.Matchmaker.Password.Alphabet)
	assert.True(t, c.Voice.Enabled)
	assert.Equal(t, 45*time.Minute, c.Voice.TTL)
	assert.Equal(t, "s3cret", c.Metrics.AdminKey)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Setenv("MM_SERVER_PORT", ":7777")
	t.Setenv("MM_MATCHMAKER_ARCHIVE", "postgres")

	c, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", c.Server.Port)
	assert.Equal(t, "postgres", c.Matchmaker.Archive)
}
