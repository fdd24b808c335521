package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_NAME", "SERVER_PORT", "REDIS_ADDR",
		"SWEEP_INTERVAL", "SWEEP_ON_READ", "REMINDER_LEAD", "LOG_LEVEL", "JWT_EXPIRE_HOURS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.False(t, cfg.SweepOnRead)
	assert.Equal(t, 24*time.Hour, cfg.ReminderLead)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24, cfg.JWTExpireHours)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "outings_test")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("SWEEP_ON_READ", "true")
	t.Setenv("REMINDER_LEAD", "2h")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()

	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.True(t, cfg.SweepOnRead)
	assert.Equal(t, 2*time.Hour, cfg.ReminderLead)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Contains(t, cfg.DSN(), "host=db")
	assert.Contains(t, cfg.DSN(), "dbname=outings_test")
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "soon")
	t.Setenv("REMINDER_LEAD", "-1h")
	t.Setenv("REDIS_DB", "two")
	t.Setenv("SWEEP_ON_READ", "maybe")

	cfg := Load()

	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.ReminderLead)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.SweepOnRead)
}
