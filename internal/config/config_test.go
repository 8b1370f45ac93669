package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	c, err := FromViper(v)
	if err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c != Default() {
		t.Errorf("FromViper = %+v, want %+v", c, Default())
	}
	if c.PollInterval != time.Second {
		t.Errorf("poll interval = %s, want 1s", c.PollInterval)
	}
	if c.Retention != 90*24*time.Hour {
		t.Errorf("retention = %s, want 2160h", c.Retention)
	}
	if filepath.Base(c.DataDir) != AppName {
		t.Errorf("data dir %q should end in %q", c.DataDir, AppName)
	}
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyPollInterval, "250ms")
	v.Set(KeyRetention, "48h")
	v.Set(KeyClipboard, "headless")
	v.Set(KeyDataDir, "/tmp/klip-test")

	c, err := FromViper(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.PollInterval != 250*time.Millisecond || c.Retention != 48*time.Hour || c.Clipboard != "headless" {
		t.Errorf("overrides not applied: %+v", c)
	}
	if got := c.PIDFile(); got != filepath.Join("/tmp/klip-test", PIDFilename) {
		t.Errorf("PIDFile = %q", got)
	}

	sc := c.Storage()
	if sc.DataDir != c.DataDir || sc.Retention != c.Retention || sc.PoolSize != c.PoolSize {
		t.Errorf("storage config mismatch: %+v", sc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }, KeyDataDir},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, KeyPollInterval},
		{"negative retention", func(c *Config) { c.Retention = -time.Hour }, KeyRetention},
		{"zero pool", func(c *Config) { c.PoolSize = 0 }, KeyPoolSize},
		{"bad backend", func(c *Config) { c.Clipboard = "x11" }, KeyClipboard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
