package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Mirror.Backend)
	assert.Equal(t, 10*time.Second, cfg.Mirror.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Reconcile.Interval)
	assert.Equal(t, 10, cfg.Reconcile.MaxAttempts)
	assert.Equal(t, "google-key.json", cfg.Google.KeyFile)
	assert.Empty(t, cfg.RabbitURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("MIRROR_BACKEND", "sheets")
	t.Setenv("MIRROR_TIMEOUT", "3s")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "sheets", cfg.Mirror.Backend)
	assert.Equal(t, 3*time.Second, cfg.Mirror.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestDSN(t *testing.T) {
	cfg := Config{DB: DatabaseConfig{
		Host: "localhost", Port: "5432", User: "u", Password: "p", Name: "checkin", SSLMode: "disable",
	}}

	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=checkin sslmode=disable", cfg.DSN())
}
