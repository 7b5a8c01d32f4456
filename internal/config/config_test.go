package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

const secret = "0123456789abcdef"

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_DSN":     "postgres://localhost/slots",
		"JWT_SECRET": secret,
	}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.AuditInterval)
	assert.False(t, cfg.TelegramEnabled())
}

func TestFromEnv_MemoryStoreNeedsNoDSN(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORE":          StoreMemory,
		"JWT_SECRET":     secret,
		"TOKEN_TTL":      "1h",
		"AUDIT_INTERVAL": "30s",
		"TELEGRAM_TOKEN": "123:abc",
	}))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.AuditInterval)
	assert.True(t, cfg.TelegramEnabled())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing dsn", map[string]string{"JWT_SECRET": secret}},
		{"short secret", map[string]string{"STORE": StoreMemory, "JWT_SECRET": "short"}},
		{"unknown store", map[string]string{"STORE": "redis", "JWT_SECRET": secret}},
		{"bad ttl", map[string]string{"STORE": StoreMemory, "JWT_SECRET": secret, "TOKEN_TTL": "forever"}},
		{"negative interval", map[string]string{"STORE": StoreMemory, "JWT_SECRET": secret, "AUDIT_INTERVAL": "-1m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.vars))
			require.Error(t, err)
		})
	}
}
