// Package config loads service configuration from a YAML file and the
// environment, environment winning.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Uploads  UploadConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Addr            string `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ShutdownSeconds int    `yaml:"shutdown_seconds" env:"HTTP_SHUTDOWN_SECONDS" env-default:"10"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-required:"true"`
}

type UploadConfig struct {
	Dir           string `yaml:"dir" env:"UPLOAD_DIR" env-default:"./uploads"`
	BaseURL       string `yaml:"base_url" env:"UPLOAD_BASE_URL" env-default:"/uploads"`
	MaxSizeMB     int    `yaml:"max_size_mb" env:"UPLOAD_MAX_SIZE_MB" env-default:"10"`
	AcceptedTypes string `yaml:"accepted_types" env:"UPLOAD_ACCEPTED_TYPES" env-default:""`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY" env-default:"false"`
}

// Load reads the config file when present, then lets environment variables
// override it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			return &cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	return &cfg, nil
}
