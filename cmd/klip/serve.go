package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"klip/internal/config"
	"klip/internal/server"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clipboard monitor and the local HTTP API",
		Long: `Opens the clip database (creating and migrating it as needed, and sweeping
clips past the retention window), then polls the system clipboard and stores
every new piece of text. The HTTP API and the clipboard-changed websocket are
served on --addr until SIGINT or SIGTERM.

Precedence (lowest to highest): defaults, config file, KLIP_* env vars, flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	d := config.Default()
	f := cmd.Flags()
	f.String(config.KeyAddr, d.Addr, "HTTP listen address")
	f.Duration(config.KeyPollInterval, d.PollInterval, "clipboard sampling interval")
	addStoreFlags(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	pid := server.NewPIDFile(cfg.PIDFile())
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			slog.Warn("failed to remove PID file", "err", err)
		}
	}()

	a, err := openApp(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("error during shutdown", "err", err)
		}
	}()

	srv := server.New(a.service, server.Config{Addr: cfg.Addr})
	if err := srv.Start(); err != nil {
		return err
	}
	if err := a.service.Start(); err != nil {
		srv.Stop()
		return fmt.Errorf("failed to start clipboard service: %w", err)
	}

	slog.Info("klip started",
		"version", Version,
		"addr", srv.Addr(),
		"data_dir", cfg.DataDir,
		"poll_interval", cfg.PollInterval,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	slog.Info("shutting down", "signal", sig.String())
	if err := srv.Stop(); err != nil {
		slog.Error("error stopping server", "err", err)
	}
	return nil
}
