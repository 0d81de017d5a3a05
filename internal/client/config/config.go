package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultServerURL = "ws://localhost:3000/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Config holds peer CLI configuration.
type Config struct {
	ServerURL    string        `toml:"server_url"`
	ICEServers   []string      `toml:"ice_servers"`
	AutoContinue bool          `toml:"auto_continue"`
	LogLevel     string        `toml:"log_level"`
	Profile      ProfileConfig `toml:"profile"`
	Negotiation  Negotiation   `toml:"negotiation"`
}

// ProfileConfig is what the partner sees about us.
type ProfileConfig struct {
	Nickname string `toml:"nickname"`
	Age      string `toml:"age"`
	Gender   string `toml:"gender"`
	Country  string `toml:"country"`
}

// Negotiation tunes the offer/answer wait and typing debounce.
type Negotiation struct {
	Wait           Duration `toml:"wait"`
	TypingDebounce Duration `toml:"typing_debounce"`
}

// Duration is a time.Duration written as a string ("3s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:  DefaultServerURL,
		ICEServers: []string{DefaultSTUN},
		LogLevel:   "warn",
		Profile:    ProfileConfig{Gender: "any"},
		Negotiation: Negotiation{
			Wait:           Duration{3 * time.Second},
			TypingDebounce: Duration{500 * time.Millisecond},
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
