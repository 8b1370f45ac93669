package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"klip/internal/clipboard"
	"klip/internal/config"
	"klip/internal/logging"
	"klip/internal/service"
	"klip/internal/storage/sqlite"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and KLIP_* env var prefix.
//
// Precedence (lowest to highest): defaults, config file, KLIP_* env vars, flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName(config.AppName)
		v.SetConfigType("toml")
		v.AddConfigPath(config.Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("KLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyLogFormat, "auto", "log format: auto|text|json")
	cmd.Flags().String(config.KeyLogLevel, "", "log level: debug|info|warn|error (default: debug on a terminal, info otherwise)")
}

// addStoreFlags adds the flags every database-backed command shares.
func addStoreFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.String(config.KeyDataDir, d.DataDir, "directory holding clips.db and images/")
	f.Duration(config.KeyRetention, d.Retention, "age after which non-favorite clips are swept at startup")
	f.Int(config.KeyPoolSize, d.PoolSize, "maximum open database connections")
	f.String(config.KeyClipboard, d.Clipboard, "clipboard backend: native|exec|headless")
	addConfigFlag(cmd)
	addLoggingFlags(cmd)
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	resolveLogging(logging.IsTTY(os.Stderr), v.GetString(config.KeyLogFormat), v.GetString(config.KeyLogLevel))
}

// loadConfig configures logging and returns the validated settings.
func loadConfig(v *viper.Viper) (config.Config, error) {
	setupLogging(v)
	return config.FromViper(v)
}

// app bundles the store and service a command works against.
type app struct {
	store   *sqlite.SQLiteStorage
	service *service.ClipboardService
}

// openApp opens the store. Commands that never touch the system clipboard
// pass withClipboard=false and get the headless backend.
func openApp(cfg config.Config, withClipboard bool) (*app, error) {
	store, err := sqlite.New(cfg.Storage())
	if err != nil {
		return nil, fmt.Errorf("opening store in %s: %w", cfg.DataDir, err)
	}

	if !withClipboard {
		cfg.Clipboard = clipboard.KindHeadless
	}
	backend, err := clipboard.New(cfg.Clipboard)
	if err != nil {
		store.Close()
		return nil, err
	}

	svc := service.New(store, backend, service.Config{PollInterval: cfg.PollInterval})
	return &app{store: store, service: svc}, nil
}

func (a *app) Close() error {
	if err := a.service.Stop(); err != nil {
		return err
	}
	return a.store.Close()
}
