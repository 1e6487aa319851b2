package watermark

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/activity-loader/internal/app"
	"github.com/tphakala/activity-loader/internal/datastore"
	"github.com/tphakala/activity-loader/internal/incremental"
	"github.com/tphakala/activity-loader/internal/logger"
)

// Command creates the command that prints the destination watermark.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watermark",
		Short: "Print the latest act_datetime in the destination",
		Long: "Connects to the destination and prints the latest act_datetime. Rows at or " +
			"before this time are skipped by the next run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.LoadSettings(cmd.Flags())
			if err != nil {
				return err
			}

			central, err := ctx.StartLogging(settings)
			if err != nil {
				return fmt.Errorf("failed to start logging: %w", err)
			}
			defer central.Close()
			log := central.Root()

			store, err := datastore.Open(cmd.Context(), &settings.Destination, log)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					log.Warn("Failed to close destination", logger.Error(cerr))
				}
			}()

			latest, err := incremental.ResolveWatermark(cmd.Context(), store, log.Module("watermark"))
			if err != nil {
				return err
			}

			if latest.Equal(incremental.MinWatermark) {
				fmt.Fprintf(ctx.Stdout, "%s: empty\n", store.Table())
				return nil
			}
			fmt.Fprintf(ctx.Stdout, "%s: %s\n", store.Table(), latest.Format(logger.TimestampLayout))
			return nil
		},
	}

	return cmd
}
