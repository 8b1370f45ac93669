// klip: local clipboard history.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"klip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "klip",
		Short: "Clipboard history with search",
		Long: `klip records every distinct piece of text copied to the system clipboard
into a local SQLite database, and lets you search, edit, favorite and re-copy it.

Run "klip serve" to start the clipboard monitor and the local HTTP API.
The other commands work directly on the database and may run alongside it.

Config file search order (first found wins):
  $XDG_CONFIG_HOME/klip/klip.toml
  path supplied via --config

All flags can be set via KLIP_<FLAG> env vars (dashes become underscores)
or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newListCmd(),
		newDatesCmd(),
		newAddCmd(),
		newEditCmd(),
		newDeleteCmd(),
		newFavoriteCmd(),
		newCopyCmd(),
		newStopCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "klip %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
