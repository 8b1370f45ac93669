package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"klip/pkg/types"
)

const previewWidth = 60

// storeCommand builds a database-backed command. run receives an opened app
// that is closed when it returns.
func storeCommand(use, short string, args cobra.PositionalArgs, withClipboard bool,
	run func(ctx context.Context, cmd *cobra.Command, v *viper.Viper, a *app, args []string) error,
) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    args,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			a, err := openApp(cfg, withClipboard)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd.Context(), cmd, v, a, args)
		},
	}
	addStoreFlags(cmd)

	return cmd
}

func newListCmd() *cobra.Command {
	cmd := storeCommand("list", "List the most recent clips", cobra.NoArgs, false,
		func(ctx context.Context, cmd *cobra.Command, v *viper.Viper, a *app, _ []string) error {
			clips, err := a.service.GetClips(ctx, v.GetString("search"), v.GetString("date"))
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), clips)
			}
			return printClips(cmd.OutOrStdout(), clips)
		})

	f := cmd.Flags()
	f.StringP("search", "s", "", "case- and accent-insensitive substring filter")
	f.StringP("date", "d", "", "only clips from this local date (YYYY-MM-DD)")
	f.Bool("json", false, "output raw JSON")

	return cmd
}

func newDatesCmd() *cobra.Command {
	cmd := storeCommand("dates", "List the dates that have clips, newest first", cobra.NoArgs, false,
		func(ctx context.Context, cmd *cobra.Command, v *viper.Viper, a *app, _ []string) error {
			dates, err := a.service.GetDates(ctx)
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), dates)
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		})

	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := storeCommand("add [text]", "Save text as a clip (reads stdin when no argument is given)", cobra.MaximumNArgs(1), false,
		func(ctx context.Context, cmd *cobra.Command, _ *viper.Viper, a *app, args []string) error {
			content, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}

			res, err := a.service.AddClip(ctx, content)
			if err != nil {
				return err
			}
			if res.Duplicate {
				fmt.Fprintln(cmd.OutOrStdout(), "Duplicate")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ID)
			return nil
		})
	return cmd
}

func newEditCmd() *cobra.Command {
	cmd := storeCommand("edit <id> [text]", "Replace the text of a clip (reads stdin when no text is given)", cobra.RangeArgs(1, 2), false,
		func(ctx context.Context, cmd *cobra.Command, _ *viper.Viper, a *app, args []string) error {
			content, err := argOrStdin(cmd, args[1:])
			if err != nil {
				return err
			}
			return a.service.UpdateClipContent(ctx, args[0], content)
		})
	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := storeCommand("delete <id>...", "Delete clips and their image files", cobra.MinimumNArgs(1), false,
		func(ctx context.Context, _ *cobra.Command, _ *viper.Viper, a *app, args []string) error {
			for _, id := range args {
				if err := a.service.DeleteClip(ctx, id); err != nil {
					return err
				}
			}
			return nil
		})
	return cmd
}

func newFavoriteCmd() *cobra.Command {
	cmd := storeCommand("favorite <id>", "Mark a clip as favorite so retention keeps it", cobra.ExactArgs(1), false,
		func(ctx context.Context, _ *cobra.Command, v *viper.Viper, a *app, args []string) error {
			return a.service.SetFavorite(ctx, args[0], !v.GetBool("remove"))
		})

	cmd.Flags().Bool("remove", false, "clear the favorite flag instead")
	return cmd
}

func newCopyCmd() *cobra.Command {
	cmd := storeCommand("copy <id>", "Put a stored clip back on the system clipboard", cobra.ExactArgs(1), true,
		func(ctx context.Context, _ *cobra.Command, _ *viper.Viper, a *app, args []string) error {
			return a.service.CopyClip(ctx, args[0])
		})
	return cmd
}

func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printClips(w io.Writer, clips []*types.Clip) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tFAV\tCONTENT")
	for _, c := range clips {
		fav := ""
		if c.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			c.ID,
			c.CreatedAt.Local().Format(time.DateTime),
			fav,
			preview(c),
		)
	}
	return tw.Flush()
}

func preview(c *types.Clip) string {
	if c.Type == types.ClipImage {
		return "[image] " + c.ImagePath
	}
	text := strings.Join(strings.Fields(c.Content), " ")
	if r := []rune(text); len(r) > previewWidth {
		text = string(r[:previewWidth-1]) + "…"
	}
	return strconv.Quote(text)
}
