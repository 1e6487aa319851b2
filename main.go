package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/activity-loader/cmd"
	"github.com/tphakala/activity-loader/internal/app"
	"github.com/tphakala/activity-loader/internal/buildinfo"
	"github.com/tphakala/activity-loader/internal/errors"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=... -X main.commit=..."
var (
	version   string
	buildDate string
	commit    string
)

func main() {
	ctx := app.NewContext(buildinfo.NewContext(version, buildDate, commit))

	if err := cmd.RootCommand(ctx).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", errors.ScrubMessage(err.Error()))
		os.Exit(errors.ExitCode(err))
	}
}
