package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ServerConfig configures the standalone websocket server.
type ServerConfig struct {
	Addr           string
	DatabasePath   string
	GameConfigPath string
	AllowedOrigins []string
	Debug          bool
}

// LoadServerFromEnv reads PRESIDENTE_* variables, applying defaults for unset values.
func LoadServerFromEnv() (ServerConfig, error) {
	cfg := ServerConfig{
		Addr:           os.Getenv("PRESIDENTE_ADDR"),
		DatabasePath:   os.Getenv("PRESIDENTE_DB_PATH"),
		GameConfigPath: os.Getenv("PRESIDENTE_GAME_CONFIG"),
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/presidente.db"
	}
	if cfg.GameConfigPath == "" {
		cfg.GameConfigPath = "data/game_config.json"
	}

	if v := os.Getenv("PRESIDENTE_ALLOWED_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, p)
			}
		}
	}

	if v := os.Getenv("PRESIDENTE_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("PRESIDENTE_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}

	if !strings.Contains(cfg.Addr, ":") {
		return ServerConfig{}, fmt.Errorf("PRESIDENTE_ADDR %q must be host:port", cfg.Addr)
	}
	return cfg, nil
}
