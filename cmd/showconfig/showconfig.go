package showconfig

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/activity-loader/internal/app"
)

// Command creates the command that prints the effective settings.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Prints the settings after defaults, config file, environment and flags are merged. Secrets are redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.LoadSettings(cmd.Flags())
			if err != nil {
				return err
			}

			redacted := settings.Redacted()
			data, err := yaml.Marshal(&redacted)
			if err != nil {
				return fmt.Errorf("error marshaling settings: %w", err)
			}

			if settings.ConfigFile != "" {
				fmt.Fprintf(ctx.Stdout, "# config file: %s\n", settings.ConfigFile)
			}
			_, err = ctx.Stdout.Write(data)
			return err
		},
	}

	return cmd
}
