package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  port: "9090"
  mode: debug
remote:
  driver: redis
sync:
  retry_attempts: 3
  write_timeout: 5s
school:
  first_weekday: sunday
  timezone: Asia/Riyadh
jwt:
  secret: short
  expire_hours: 24
storage:
  type: minio
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Remote.Driver)
	assert.Equal(t, "hifz:", cfg.Remote.RedisPrefix)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Sync.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Sync.PingInterval)
	assert.Equal(t, "sunday", cfg.School.FirstWeekday)
	assert.Equal(t, 5, cfg.School.LeaderboardSize)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "none", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:    ServerConfig{Mode: "debug"},
			Remote:    RemoteConfig{Driver: "memory"},
			Database:  DatabaseConfig{Driver: "none"},
			Sync:      SyncConfig{RetryAttempts: 1},
			RateLimit: RateLimitConfig{MaxRequests: 10, WindowMinutes: 1, LoginMaxRequests: 2},
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"short secret in release", func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "abc" }, true},
		{"long secret in release", func(c *Config) {
			c.Server.Mode = "release"
			c.JWT.Secret = "0123456789abcdef0123456789abcdef"
		}, false},
		{"firestore without project", func(c *Config) { c.Remote.Driver = "firestore" }, true},
		{"firestore with project", func(c *Config) { c.Remote.Driver = "firestore"; c.Remote.FirestoreProject = "hifz" }, false},
		{"unknown remote", func(c *Config) { c.Remote.Driver = "mongo" }, true},
		{"unknown database", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"no attempts", func(c *Config) { c.Sync.RetryAttempts = 0 }, true},
		{"no rate limit window", func(c *Config) { c.RateLimit.WindowMinutes = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
