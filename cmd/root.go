package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/activity-loader/cmd/run"
	"github.com/tphakala/activity-loader/cmd/showconfig"
	"github.com/tphakala/activity-loader/cmd/version"
	"github.com/tphakala/activity-loader/cmd/watermark"
	"github.com/tphakala/activity-loader/internal/app"
)

// RootCommand creates and returns the root command. Without a subcommand
// it performs a load, like "run".
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "activity-loader",
		Short: "Incremental loader for the activity tracker workbook",
		Long: "activity-loader appends the rows of the activity tracker workbook that are newer " +
			"than the latest act_datetime already stored in the destination table.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.Execute(cmd, ctx)
		},
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, ctx)

	rootCmd.SetOut(ctx.Stdout)
	rootCmd.SetErr(ctx.Stderr)

	subcommands := []*cobra.Command{
		run.Command(ctx),
		watermark.Command(ctx),
		showconfig.Command(ctx),
		version.Command(ctx),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
// Flags other than --config and --env-file are bound to config keys when
// settings are loaded, so a flag only overrides when it is set.
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&ctx.ConfigFile, "config", "c", "", "Config file (default: activity-loader.yaml in ., ./config or ~/.config/activity-loader)")
	flags.StringVar(&ctx.EnvFile, "env-file", "", "Dotenv file loaded before the environment is read (default: .env when present)")

	flags.StringP("source", "s", "", "Path to the activity tracker workbook")
	flags.String("credentials", "", "Path to the INI file with destination credentials")
	flags.String("driver", "", "Destination driver: postgres, mysql or sqlite")
	flags.String("schema", "", "Destination schema")
	flags.String("table", "", "Destination table")
	flags.String("insert-process", "", "Provenance tag written to insert_process")
	flags.Duration("timeout", 0, "Abort the run after this long (0 = no limit)")
	flags.Bool("dry-run", false, "Compute the new rows without writing them")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "", "Console log level: trace, debug, info, warn or error")
	flags.String("metrics-textfile", "", "Write run metrics to this node-exporter textfile")
}
