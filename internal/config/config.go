package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"prmanager/internal/repository"
)

type Config struct {
	repository.PostgresCfg

	HTTPPort string `env:"PORT" env-default:"8080"`
}

// NewConfig reads the env file pointed to by ENV_PATH (default
// ./config/.env) when it exists, falling back to process env vars.
func NewConfig() (*Config, error) {
	var cfg Config

	path := os.Getenv("ENV_PATH")
	if path == "" {
		path = "./config/.env"
	}

	if _, err := os.Stat(path); err == nil {
		if err = cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	return &cfg, nil
}
