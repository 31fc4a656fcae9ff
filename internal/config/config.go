package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found", "error", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv parses values like "30m" or "1h".
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetListEnv splits a comma separated variable, dropping empty entries.
func GetListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(GetEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled is false when no REDIS_HOST is configured; an in-process cache is used instead.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

type EmailConfig struct {
	APIURL  string
	Token   string
	Sender  string
	Workers int
	Queue   int
	Timeout time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type Config struct {
	Port           string
	Env            string
	JWTSecret      string
	CORSOrigins    string
	RateLimitMax   int
	TrustedProxies []string

	CaseCacheTTL  time.Duration
	StatsCacheTTL time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	Email    EmailConfig
	Kafka    KafkaConfig
}

// Load collects every setting the binaries need from the environment.
func Load() *Config {
	return &Config{
		Port:         GetEnv("PORT", "3000"),
		Env:          GetEnv("ENV", "development"),
		JWTSecret:    GetEnv("JWT_SECRET", ""),
		CORSOrigins:  GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		RateLimitMax: GetIntEnv("RATE_LIMIT_MAX", 120),

		TrustedProxies: GetListEnv("TRUSTED_PROXIES"),

		CaseCacheTTL:  GetDurationEnv("CASE_CACHE_TTL", 10*time.Minute),
		StatsCacheTTL: GetDurationEnv("STATS_CACHE_TTL", time.Hour),

		Database: DatabaseConfig{
			URL:             GetEnv("DATABASE_URL", ""),
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "arbitra"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", ""),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Email: EmailConfig{
			APIURL:  strings.TrimRight(GetEnv("EMAIL_API_URL", ""), "/"),
			Token:   GetEnv("EMAIL_API_TOKEN", ""),
			Sender:  GetEnv("EMAIL_SENDER", "disputes@arbitra.local"),
			Workers: GetIntEnv("EMAIL_WORKERS", 4),
			Queue:   GetIntEnv("EMAIL_QUEUE_SIZE", 256),
			Timeout: GetDurationEnv("EMAIL_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: GetListEnv("KAFKA_BROKERS"),
			Topic:   GetEnv("KAFKA_TOPIC", "arbitra.dispute-events"),
		},
	}
}
