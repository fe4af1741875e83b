// internal/config/env.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *FileConfig) {
	if cfg.Source == nil {
		cfg.Source = map[string]interface{}{}
	}

	if path := os.Getenv("FSOURCE_PATH"); path != "" {
		cfg.Source["path"] = path
	}

	if deep := os.Getenv("FSOURCE_DEEP"); deep != "" {
		if d, err := strconv.Atoi(deep); err == nil {
			cfg.Source["deep"] = d
		} else if b, err := strconv.ParseBool(deep); err == nil {
			cfg.Source["deep"] = b
		}
	}

	if f := os.Getenv("FSOURCE_FILTER"); f != "" {
		var patterns []interface{}
		for _, p := range strings.Split(f, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		cfg.Source["filter"] = patterns
	}

	if c := os.Getenv("FSOURCE_CONCURRENCY"); c != "" {
		if n, err := strconv.Atoi(c); err == nil {
			cfg.Concurrency = n
		}
	}

	// Watch settings
	if w := os.Getenv("FSOURCE_WATCH"); w != "" {
		if b, err := strconv.ParseBool(w); err == nil {
			cfg.Watch.Enabled = b
		}
	}
	if d := os.Getenv("FSOURCE_DEBOUNCE"); d != "" {
		if dur, err := time.ParseDuration(d); err == nil {
			cfg.Watch.Debounce = dur
		}
	}

	// Storage settings
	if mode := os.Getenv("FSOURCE_STORAGE_MODE"); mode != "" {
		cfg.Storage.Mode = mode
	}
	if rate := os.Getenv("FSOURCE_READ_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil {
			cfg.Storage.ReadRate = r
		}
	}
	if retries := os.Getenv("FSOURCE_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			cfg.Storage.Retries = n
		}
	}
	cfg.Storage.S3.Endpoint = GetEnvOrDefault("S3_ENDPOINT", cfg.Storage.S3.Endpoint)
	cfg.Storage.S3.Region = GetEnvOrDefault("S3_REGION", cfg.Storage.S3.Region)
	cfg.Storage.S3.Bucket = GetEnvOrDefault("S3_BUCKET", cfg.Storage.S3.Bucket)
	cfg.Storage.S3.AccessKey = GetEnvOrDefault("S3_ACCESS_KEY", cfg.Storage.S3.AccessKey)
	cfg.Storage.S3.SecretKey = GetEnvOrDefault("S3_SECRET_KEY", cfg.Storage.S3.SecretKey)

	if logLevel := os.Getenv("FSOURCE_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if addr := os.Getenv("FSOURCE_METRICS_ADDR"); addr != "" {
		cfg.Server.MetricsAddr = addr
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
