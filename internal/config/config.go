package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/linechat-server/internal/core"
)

// RoomConfig declares one room created at startup.
type RoomConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
}

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	HTTPAddr           string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	SendBuffer         int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	MaxLineBytes       int           `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	StatusInterval     time.Duration `mapstructure:"status_interval" yaml:"status_interval"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path"`
	Rooms              []RoomConfig  `mapstructure:"rooms" yaml:"rooms"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	specs := core.DefaultRooms()
	rooms := make([]RoomConfig, 0, len(specs))
	for _, s := range specs {
		rooms = append(rooms, RoomConfig{Name: s.Name, Capacity: s.Capacity})
	}

	return Config{
		Addr:               ":5001",
		HTTPAddr:           ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		WriteTimeout:       5 * time.Second,
		SendBuffer:         64,
		MaxLineBytes:       4096,
		RateLimitPerMinute: 120,
		StatusInterval:     5 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "console",
		DatabasePath:       "linechat.db",
		Rooms:              rooms,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.StatusInterval != 0 {
		c.StatusInterval = other.StatusInterval
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if len(other.Rooms) > 0 {
		c.Rooms = other.Rooms
	}
}

// RoomSpecs converts the configured rooms for the room directory.
func (c *Config) RoomSpecs() []core.RoomSpec {
	specs := make([]core.RoomSpec, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		specs = append(specs, core.RoomSpec{Name: r.Name, Capacity: r.Capacity})
	}
	return specs
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer))
	}
	if c.MaxLineBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_line_bytes must be positive, got %d", c.MaxLineBytes))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_minute must not be negative, got %d", c.RateLimitPerMinute))
	}
	if c.WriteTimeout < 0 || c.ShutdownTimeout < 0 || c.StatusInterval < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := core.NewDirectory(c.RoomSpecs()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
