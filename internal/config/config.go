// Package config loads client configuration: built-in defaults, then an
// optional YAML file named by CHESS_CLIENT_CONFIG, then environment variable
// overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServerBaseURL string `yaml:"server_base_url"`
	ServerWSURL   string `yaml:"server_ws_url"`

	UserID   int64  `yaml:"user_id"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`

	ReplayIntervalMs  int    `yaml:"replay_interval_ms"`
	ExitDelaySec      int    `yaml:"exit_delay_sec"`
	NotificationLimit int    `yaml:"notification_limit"`
	MessageDir        string `yaml:"message_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ReplayIntervalMs:  700,
		ExitDelaySec:      3,
		NotificationLimit: 3,
	}
}

// Load builds the effective configuration. Environment variables win over the
// file so deployments can patch a shared config without editing it.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CHESS_CLIENT_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.ServerBaseURL == "" {
		return nil, errors.New("SERVER_BASE_URL is required")
	}
	if cfg.ServerWSURL == "" {
		return nil, errors.New("SERVER_WS_URL is required")
	}
	if cfg.ReplayIntervalMs <= 0 {
		cfg.ReplayIntervalMs = 700
	}
	if cfg.NotificationLimit <= 0 {
		cfg.NotificationLimit = 3
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("SERVER_BASE_URL")); v != "" {
		cfg.ServerBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_WS_URL")); v != "" {
		cfg.ServerWSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("USER_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.UserID = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("USERNAME")); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(os.Getenv("TOKEN")); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_INTERVAL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReplayIntervalMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("EXIT_DELAY_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ExitDelaySec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFICATION_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NotificationLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGE_DIR")); v != "" {
		cfg.MessageDir = v
	}
}

// ReplayInterval returns the playback step as a duration.
func (c *AppConfig) ReplayInterval() time.Duration {
	return time.Duration(c.ReplayIntervalMs) * time.Millisecond
}

// ExitDelay returns how long a finished game stays on screen before the host
// is asked to leave the game view.
func (c *AppConfig) ExitDelay() time.Duration {
	return time.Duration(c.ExitDelaySec) * time.Second
}
