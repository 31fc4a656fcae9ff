package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.CaseCacheTTL)
	assert.Equal(t, time.Hour, cfg.StatsCacheTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Contains(t, cfg.Database.DSN(), "dbname=arbitra")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/disputes?sslmode=disable")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CASE_CACHE_TTL", "2m")
	t.Setenv("EMAIL_API_URL", "https://mail.example.com/")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,10.0.0.0/8")

	cfg := Load()

	assert.Equal(t, "postgres://u:p@db:5432/disputes?sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Minute, cfg.CaseCacheTTL)
	assert.Equal(t, "https://mail.example.com", cfg.Email.APIURL)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.TrustedProxies)
}

func TestGetIntEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "lots")
	assert.Equal(t, 7, GetIntEnv("RATE_LIMIT_MAX", 7))
}
