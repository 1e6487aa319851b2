package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/activity-loader/internal/app"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/observability"
	"github.com/tphakala/activity-loader/internal/pipeline"
	"github.com/tphakala/activity-loader/internal/telemetry"
)

// Command creates the command that runs one incremental load.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load new activity rows from the workbook",
		Long: "Reads the first sheet of the workbook, compares it with the latest act_datetime " +
			"in the destination table and appends the rows that are newer.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd, ctx)
		},
	}

	return cmd
}

// Execute runs the pipeline with the settings resolved from cmd's flags.
// It is shared with the root command, which runs a load when no
// subcommand is given.
func Execute(cmd *cobra.Command, ctx *app.Context) error {
	settings, err := ctx.LoadSettings(cmd.Flags())
	if err != nil {
		return err
	}

	central, err := ctx.StartLogging(settings)
	if err != nil {
		return fmt.Errorf("failed to start logging: %w", err)
	}
	defer func() {
		if cerr := central.Close(); cerr != nil {
			fmt.Fprintf(ctx.Stderr, "failed to close log file: %v\n", cerr)
		}
	}()
	log := central.Root()
	mainLog := log.Module("main")
	mainLog.Info("activity-loader starting",
		logger.String("version", ctx.Build.Version()),
		logger.String("config_file", settings.ConfigFile),
		logger.String("log_file", central.FilePath()))
	for _, w := range settings.Warnings {
		mainLog.Warn(w)
	}

	stopTelemetry, err := telemetry.Init(&settings.Telemetry, ctx.Build.Version(), log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if settings.Load.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, settings.Load.Timeout)
		defer cancel()
	}

	opts := []pipeline.Option{pipeline.WithFs(ctx.Fs)}
	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
		opts = append(opts, pipeline.WithMetrics(m))
	}

	_, err = pipeline.New(settings, log, opts...).Run(runCtx)
	return err
}
