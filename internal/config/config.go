package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Redis      RedisConfig
	Cache      CacheConfig
	OTP        OTPConfig
	SMTP       SMTPConfig
	Audit      AuditConfig
	SuperAdmin SuperAdminConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	PublicURL string
	// RateLimit is the per-client request rate (requests/second) enforced by the API.
	RateLimit float64
	BodyLimit string
	Timeout   time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	LogLevel string
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type StorageConfig struct {
	Provider string // local, s3, etc.
	S3       S3Config
}

type S3Config struct {
	BucketName string `env:"S3_BUCKET_NAME"`
	Endpoint   string `env:"S3_ENDPOINT"`
	Region     string `env:"S3_REGION"`
	AccessKey  string `env:"S3_ACCESS_KEY"`
	SecretKey  string `env:"S3_SECRET_KEY"`
}

func (c S3Config) Enabled() bool {
	return c.BucketName != "" && c.AccessKey != "" && c.SecretKey != ""
}

type WorkerConfig struct {
	Concurrency int
	// PurgeSchedule is the cron spec of the expired session/OTP purge task.
	PurgeSchedule string
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

type CacheConfig struct {
	Backend string // memory or redis
	TTL     time.Duration
}

type OTPConfig struct {
	Length      int
	TTL         time.Duration
	MaxRequests int
	Window      time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AuditConfig struct {
	// SigningKey signs user archives written during cascading deletes.
	SigningKey string
	// Offload uploads archives to S3 when storage is configured.
	Offload bool
}

type SuperAdminConfig struct {
	Email    string
	Password string
	Name     string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
			RateLimit: getEnvAsFloat("SERVER_RATE_LIMIT", 20),
			BodyLimit: getEnv("SERVER_BODY_LIMIT", "1M"),
			Timeout:   getEnvAsDuration("SERVER_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "pageguard"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key"),
			AccessTTL:  getEnvAsDuration("JWT_ACCESS_TTL", time.Hour),
			RefreshTTL: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "local"),
			S3: S3Config{
				BucketName: getEnv("S3_BUCKET_NAME", ""),
				Endpoint:   getEnv("S3_ENDPOINT", ""),
				Region:     getEnv("S3_REGION", "us-east-1"),
				AccessKey:  getEnv("S3_ACCESS_KEY", ""),
				SecretKey:  getEnv("S3_SECRET_KEY", ""),
			},
		},
		Worker: WorkerConfig{
			Concurrency:   getEnvAsInt("WORKER_CONCURRENCY", 5),
			PurgeSchedule: getEnv("WORKER_PURGE_SCHEDULE", "*/15 * * * *"),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Backend: getEnv("PERMISSION_CACHE_BACKEND", "redis"),
			TTL:     getEnvAsDuration("PERMISSION_CACHE_TTL", 5*time.Minute),
		},
		OTP: OTPConfig{
			Length:      getEnvAsInt("OTP_LENGTH", 6),
			TTL:         getEnvAsDuration("OTP_TTL", 10*time.Minute),
			MaxRequests: getEnvAsInt("OTP_MAX_REQUESTS", 3),
			Window:      getEnvAsDuration("OTP_WINDOW", 15*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@pageguard.local"),
		},
		Audit: AuditConfig{
			SigningKey: getEnv("AUDIT_SIGNING_KEY", ""),
			Offload:    getEnvAsBool("AUDIT_OFFLOAD", false),
		},
		SuperAdmin: SuperAdminConfig{
			Email:    getEnv("SUPERADMIN_EMAIL", ""),
			Password: getEnv("SUPERADMIN_PASSWORD", ""),
			Name:     getEnv("SUPERADMIN_NAME", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Audit.SigningKey == "" {
		cfg.Audit.SigningKey = cfg.JWT.Secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default sensibly.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("PERMISSION_CACHE_TTL must be positive"))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("PERMISSION_CACHE_BACKEND %q must be memory or redis", c.Cache.Backend))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH %d out of range", c.OTP.Length))
	}
	if _, err := cron.ParseStandard(c.Worker.PurgeSchedule); err != nil {
		errs = append(errs, fmt.Errorf("WORKER_PURGE_SCHEDULE: %w", err))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Save writes the resolved configuration as JSON, redacting secrets.
func (c *Config) Save(path string) error {
	redacted := *c
	redacted.Database.Password = ""
	redacted.JWT.Secret = ""
	redacted.Storage.S3.SecretKey = ""
	redacted.SMTP.Password = ""
	redacted.Audit.SigningKey = ""
	redacted.SuperAdmin.Password = ""
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTestConfig returns a configuration suitable for tests. No environment is read.
func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8081,
			RateLimit: 1000,
			BodyLimit: "1M",
			Timeout:   5 * time.Second,
		},
		JWT: JWTConfig{
			Secret:     "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Worker: WorkerConfig{
			Concurrency:   1,
			PurgeSchedule: "@every 1h",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     5 * time.Minute,
		},
		OTP: OTPConfig{
			Length:      6,
			TTL:         10 * time.Minute,
			MaxRequests: 3,
			Window:      15 * time.Minute,
		},
		Audit: AuditConfig{
			SigningKey: "test-audit-key",
		},
		Log: LogConfig{
			Level: "error",
		},
	}
}
