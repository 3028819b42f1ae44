package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameConfig holds match tuning shared by every transport.
type GameConfig struct {
	// TurnDurationSeconds is how long a seat may think before its turn is skipped. 0 disables the timer.
	TurnDurationSeconds int `json:"turn_duration_seconds"`
	// BotsEnabled allows empty seats to be filled by bots.
	BotsEnabled bool `json:"bots_enabled"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before filling a solo human lobby with bots.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	BotMinDelaySeconds      int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds      int `json:"bot_max_delay_seconds"`
}

// DefaultGameConfig returns the configuration used when no file was loaded.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		TurnDurationSeconds:     30,
		BotAutoFillDelaySeconds: 5,
		BotMinDelaySeconds:      1,
		BotMaxDelaySeconds:      3,
	}
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// ParseGameConfig decodes a JSON game configuration on top of the defaults.
func ParseGameConfig(data []byte) (GameConfig, error) {
	c := DefaultGameConfig()
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if c.TurnDurationSeconds < 0 {
		return GameConfig{}, fmt.Errorf("turn_duration_seconds must not be negative")
	}
	if c.BotMinDelaySeconds < 0 || c.BotMaxDelaySeconds < c.BotMinDelaySeconds {
		return GameConfig{}, fmt.Errorf("bot delay range [%d, %d] is invalid", c.BotMinDelaySeconds, c.BotMaxDelaySeconds)
	}
	return c, nil
}

// GetGameConfig returns the loaded configuration, or the defaults.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return DefaultGameConfig()
	}
	return *cfg
}
