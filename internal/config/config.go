package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	// MessageRateLimit caps inbound messages per connection per minute.
	// Zero or negative disables it.
	MessageRateLimit int      `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
	EventBuffer      int      `mapstructure:"event_buffer" yaml:"event_buffer"`
	ReportWorkers    int      `mapstructure:"report_workers" yaml:"report_workers"`
	OriginPatterns   []string `mapstructure:"origin_patterns" yaml:"origin_patterns"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "babyboom.db",
		MessageRateLimit:  600,
		EventBuffer:       64,
		ReportWorkers:     2,
		OriginPatterns:    []string{"*"},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// A zero MessageRateLimit counts as unset here; callers that need to
// disable limiting set the field directly.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MessageRateLimit != 0 {
		c.MessageRateLimit = other.MessageRateLimit
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.ReportWorkers != 0 {
		c.ReportWorkers = other.ReportWorkers
	}
	if len(other.OriginPatterns) > 0 {
		c.OriginPatterns = other.OriginPatterns
	}
}
