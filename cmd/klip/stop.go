package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"klip/internal/config"
	"klip/internal/server"
)

func newStopCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "stop",
		Short:   "Stop a running klip serve",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStop(cmd, v) },
	}

	cmd.Flags().String(config.KeyDataDir, config.DefaultDataDir(), "directory holding klip.pid")
	addConfigFlag(cmd)

	return cmd
}

func runStop(cmd *cobra.Command, v *viper.Viper) error {
	pf := server.NewPIDFile(config.Config{DataDir: v.GetString(config.KeyDataDir)}.PIDFile())

	pid, err := pf.Read()
	if err != nil {
		return err
	}
	if pid == 0 || !server.IsRunning(pid) {
		fmt.Fprintln(cmd.OutOrStdout(), "klip is not running")
		return pf.Remove()
	}

	if err := server.Terminate(pid); err != nil {
		return err
	}

	deadline := time.Now().Add(5 * time.Second)
	for server.IsRunning(pid) {
		if time.Now().After(deadline) {
			return fmt.Errorf("process %d did not exit", pid)
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stopped klip (pid %d)\n", pid)
	return nil
}
