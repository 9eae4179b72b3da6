package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Tracker  TrackerConfig
	Dispatch DispatchConfig
}

type ServerConfig struct {
	Host string
	Port int `validate:"min=1,max=65535"`
}

type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required"`
	Password string
	Name     string `validate:"required"`
	SSLMode  string
}

type RedisConfig struct {
	Addr     string `validate:"required"`
	Password string
	Username string
	DB       int
}

type SMTPConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	Username    string
	Password    string
	MaxSendRate int `validate:"min=1"`
}

// TrackerConfig covers the correlation-token signing and the public base URL
// that rewritten links and the open pixel point back at.
type TrackerConfig struct {
	JWTSecret string        `validate:"required,min=16"`
	BaseURL   string        `validate:"required,url"`
	TokenTTL  time.Duration `validate:"min=1m"`
}

// DispatchConfig controls the due-job poller. Mode "cron" runs the sweep on
// an in-process trigger; "queue" hands sweeps to the task server instead.
type DispatchConfig struct {
	Mode        string        `validate:"oneof=cron queue"`
	Interval    time.Duration `validate:"min=1s"`
	Concurrency int           `validate:"min=1"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "mailflare"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", "localhost"),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			MaxSendRate: getEnvAsInt("SMTP_MAX_SEND_RATE", 10),
		},
		Tracker: TrackerConfig{
			JWTSecret: getEnv("TRACKER_JWT_SECRET", "change-me-change-me"),
			BaseURL:   getEnv("TRACKER_BASE_URL", "http://localhost:8080"),
			TokenTTL:  getEnvAsDuration("TRACKER_TOKEN_TTL", 30*24*time.Hour),
		},
		Dispatch: DispatchConfig{
			Mode:        getEnv("DISPATCH_MODE", "cron"),
			Interval:    getEnvAsDuration("DISPATCH_INTERVAL", time.Minute),
			Concurrency: getEnvAsInt("DISPATCH_CONCURRENCY", 5),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
