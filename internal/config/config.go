// Package config содержит логику чтения конфигурации сервиса клиентов и фиделизации.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envLogLevel := cfg.LogLevel

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envLogLevel != "" {
		cfg.LogLevel = envLogLevel
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if _, err := zap.ParseAtomicLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	return cfg, nil
}

// Level возвращает уровень логирования из конфигурации.
func (c *Config) Level() zap.AtomicLevel {
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return lvl
}
