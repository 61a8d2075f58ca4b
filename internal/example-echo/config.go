package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// config holds the settings of the echo server
type config struct {
	Addr         string
	Path         string
	Adapter      string // "coder" or "gorilla"
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     slog.Level
}

func defaultConfig() config {
	return config{
		Addr:         "localhost:8080",
		Path:         "/",
		Adapter:      "coder",
		IdleTimeout:  time.Minute,
		WriteTimeout: 10 * time.Second,
		LogLevel:     slog.LevelInfo,
	}
}

type fileConfig struct {
	Addr         string `toml:"addr"`
	Path         string `toml:"path"`
	Adapter      string `toml:"adapter"`
	IdleTimeout  string `toml:"idle_timeout"`
	WriteTimeout string `toml:"write_timeout"`
	LogLevel     string `toml:"log_level"`
}

// loadConfig reads the TOML file at path, if not empty, on top of the
// defaults. Environment variables, optionally loaded from envFile, override
// the file.
func loadConfig(path, envFile string) (config, error) {
	cfg := defaultConfig()

	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return config{}, fmt.Errorf("load config: %w", err)
		}
		if meta.IsDefined("addr") {
			cfg.Addr = strings.TrimSpace(raw.Addr)
		}
		if meta.IsDefined("path") {
			cfg.Path = strings.TrimSpace(raw.Path)
		}
		if meta.IsDefined("adapter") {
			cfg.Adapter = strings.TrimSpace(raw.Adapter)
		}
		if meta.IsDefined("idle_timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
			if err != nil {
				return config{}, fmt.Errorf("parse idle_timeout: %w", err)
			}
			cfg.IdleTimeout = d
		}
		if meta.IsDefined("write_timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
			if err != nil {
				return config{}, fmt.Errorf("parse write_timeout: %w", err)
			}
			cfg.WriteTimeout = d
		}
		if meta.IsDefined("log_level") {
			if err := cfg.LogLevel.UnmarshalText([]byte(raw.LogLevel)); err != nil {
				return config{}, fmt.Errorf("parse log_level: %w", err)
			}
		}
	}

	if envFile != "" {
		// A missing .env file is not an error
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return config{}, fmt.Errorf("load env file: %w", err)
		}
	}
	if v, ok := os.LookupEnv("JSONSOCKET_ADDR"); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv("JSONSOCKET_ADAPTER"); ok && v != "" {
		cfg.Adapter = v
	}
	if v, ok := os.LookupEnv("JSONSOCKET_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return config{}, fmt.Errorf("parse JSONSOCKET_LOG_LEVEL: %w", err)
		}
	}

	switch cfg.Adapter {
	case "coder", "gorilla":
	default:
		return config{}, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
	return cfg, nil
}
