// internal/config/file.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the document read by cmd/fsource
type FileConfig struct {
	Source      map[string]interface{} `yaml:"source"`
	Concurrency int                    `yaml:"concurrency" default:"8"`
	Watch       WatchConfig            `yaml:"watch"`
	Storage     StorageConfig          `yaml:"storage"`
	Server      ServerConfig           `yaml:"server"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" default:"false"`
	Debounce time.Duration `yaml:"debounce" default:"50ms"`
}

type StorageConfig struct {
	Mode     string   `yaml:"mode" default:"local"` // local or s3
	ReadRate int      `yaml:"read_rate"`            // bytes per second, 0 is unlimited
	Retries  int      `yaml:"retries" default:"3"`  // attempts per remote call
	S3       S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region" default:"us-east-1"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type ServerConfig struct {
	LogLevel    string `yaml:"log_level" default:"info"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is given
func Default() *FileConfig {
	return &FileConfig{
		Source:      map[string]interface{}{},
		Concurrency: 8,
		Watch:       WatchConfig{Debounce: 50 * time.Millisecond},
		Storage: StorageConfig{
			Mode:    "local",
			Retries: 3,
			S3:      S3Config{Region: "us-east-1"},
		},
		Server: ServerConfig{LogLevel: "info"},
	}
}

// LoadFile reads a YAML document on top of Default
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Source == nil {
		cfg.Source = map[string]interface{}{}
	}
	return cfg, nil
}

// Validate checks the settings that do not belong to the source itself
func (c *FileConfig) Validate() error {
	switch c.Storage.Mode {
	case "", "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required in s3 mode")
		}
	default:
		return fmt.Errorf("unknown storage mode: %s", c.Storage.Mode)
	}
	if c.Storage.Retries < 0 {
		return fmt.Errorf("storage.retries must not be negative")
	}
	if c.Storage.ReadRate < 0 {
		return fmt.Errorf("storage.read_rate must not be negative")
	}
	return nil
}
