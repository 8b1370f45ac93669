// Package config holds the runtime settings shared by klip commands.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"klip/internal/clipboard"
	"klip/internal/storage"
)

const (
	AppName     = "klip"
	DefaultAddr = "127.0.0.1:8753"
	PIDFilename = "klip.pid"
)

// Viper keys. They double as flag names and, upper-cased with a KLIP_
// prefix, as environment variables.
const (
	KeyDataDir      = "data-dir"
	KeyAddr         = "addr"
	KeyPollInterval = "poll-interval"
	KeyRetention    = "retention"
	KeyPoolSize     = "pool-size"
	KeyClipboard    = "clipboard"
	KeyLogFormat    = "log-format"
	KeyLogLevel     = "log-level"
)

type Config struct {
	DataDir      string
	Addr         string
	PollInterval time.Duration
	Retention    time.Duration
	PoolSize     int
	Clipboard    string
	LogFormat    string
	LogLevel     string
}

// DefaultDataDir is $XDG_DATA_HOME/klip.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Dir is the directory searched for klip.toml.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func Default() Config {
	return Config{
		DataDir:      DefaultDataDir(),
		Addr:         DefaultAddr,
		PollInterval: clipboard.DefaultPollInterval,
		Retention:    storage.DefaultRetention,
		PoolSize:     storage.DefaultPoolSize,
		Clipboard:    clipboard.KindNative,
		LogFormat:    "auto",
	}
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyAddr, d.Addr)
	v.SetDefault(KeyPollInterval, d.PollInterval)
	v.SetDefault(KeyRetention, d.Retention)
	v.SetDefault(KeyPoolSize, d.PoolSize)
	v.SetDefault(KeyClipboard, d.Clipboard)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// FromViper reads a Config out of v and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		DataDir:      v.GetString(KeyDataDir),
		Addr:         v.GetString(KeyAddr),
		PollInterval: v.GetDuration(KeyPollInterval),
		Retention:    v.GetDuration(KeyRetention),
		PoolSize:     v.GetInt(KeyPoolSize),
		Clipboard:    v.GetString(KeyClipboard),
		LogFormat:    v.GetString(KeyLogFormat),
		LogLevel:     v.GetString(KeyLogLevel),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%s must not be empty", KeyDataDir)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyPollInterval, c.PollInterval)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyRetention, c.Retention)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyPoolSize, c.PoolSize)
	}
	switch c.Clipboard {
	case clipboard.KindNative, clipboard.KindExec, clipboard.KindHeadless:
	default:
		return fmt.Errorf("unknown %s backend %q", KeyClipboard, c.Clipboard)
	}
	return nil
}

// Storage returns the store settings derived from c.
func (c Config) Storage() storage.Config {
	return storage.Config{
		DataDir:   c.DataDir,
		Retention: c.Retention,
		PoolSize:  c.PoolSize,
	}
}

func (c Config) PIDFile() string {
	return filepath.Join(c.DataDir, PIDFilename)
}
