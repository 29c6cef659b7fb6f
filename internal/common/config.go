package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	S3      S3Config
	Doctly  DoctlyConfig
	Webhook WebhookConfig
	History HistoryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string
	ServiceName string
}

// S3Config holds object store configuration
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // optional override for MinIO-compatible stores
}

// DoctlyConfig holds conversion service configuration
type DoctlyConfig struct {
	APIKey        string
	BaseURL       string
	Accuracy      string
	UploadTimeout time.Duration
	PollInterval  time.Duration
	MaxWait       time.Duration
}

// WebhookConfig holds outbound notification configuration
type WebhookConfig struct {
	Timeout time.Duration
}

// HistoryConfig holds the job history database configuration
type HistoryConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":" + getEnv("PORT", "8000"),
			ServiceName: getEnv("SERVICE_NAME", "docparse"),
		},
		S3: S3Config{
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
		},
		Doctly: DoctlyConfig{
			APIKey:        getEnv("DOCTLY_API_KEY", ""),
			BaseURL:       getEnv("DOCTLY_BASE_URL", "https://api.doctly.ai/api/v1"),
			Accuracy:      getEnv("DOCTLY_ACCURACY", "ultra"),
			UploadTimeout: getEnvAsDuration("DOCTLY_UPLOAD_TIMEOUT", 300*time.Second),
			PollInterval:  getEnvAsDuration("DOCTLY_POLL_INTERVAL", 10*time.Second),
			MaxWait:       getEnvAsDuration("DOCTLY_MAX_WAIT", 1800*time.Second),
		},
		Webhook: WebhookConfig{
			Timeout: getEnvAsDuration("WEBHOOK_TIMEOUT", 30*time.Second),
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB_PATH", "./docparse.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// MissingCredentials reports which required credential variables are unset.
// The submission boundary checks this per request, before any job is queued.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.S3.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.S3.SecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if c.Doctly.APIKey == "" {
		missing = append(missing, "DOCTLY_API_KEY")
	}
	return missing
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if missing := c.MissingCredentials(); len(missing) > 0 {
		return NewAppError("CONFIG_ERROR", "missing environment variables: "+strings.Join(missing, ", "), ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "PORT is required", ErrInvalidInput)
	}
	if c.Doctly.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "DOCTLY_BASE_URL is required", ErrInvalidInput)
	}
	return nil
}
