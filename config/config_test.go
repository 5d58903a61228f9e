package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.ReadTimeout)
	assert.Empty(t, cfg.Redis.Addr, "redis bridge disabled by default")
	assert.Equal(t, 24, cfg.Auth.ExpireHours)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_EXPIRE_HOURS", "2")
	t.Setenv("READ_TIMEOUT_SEC", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Auth.ExpireHours)
	assert.Equal(t, 30, cfg.Server.ReadTimeout, "malformed values fall back to default")
}
