package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/activity-loader/internal/app"
)

// Command creates a new cobra.Command to print build metadata.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(ctx.Stdout, ctx.Build.String())
			return err
		},
	}

	return cmd
}
