// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rcbuild/internal/postprocess"
)

// newTouchCommand creates `rcbuild touch`, which gives every file in a
// staged tree the same modification time.
func newTouchCommand(app *App) *cobra.Command {
	var at string
	touchCmd := &cobra.Command{
		Use:   "touch <dir>",
		Short: "Set every file under a directory to one modification time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t time.Time
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --time: %w", err)
				}
				t = parsed
			}
			n, err := postprocess.NormalizeTimestamps(args[0], t, app.clock())
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "%s touched %d files\n", SuccessStyle.Render("✓"), n)
			return nil
		},
	}
	touchCmd.Flags().StringVar(&at, "time", "", "timestamp to apply (RFC 3339, default now)")
	return touchCmd
}
