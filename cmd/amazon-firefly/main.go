package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"amazon-firefly/cmd/amazon-firefly/commands"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "amazon-firefly")
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	if tel.Enabled() {
		telemetry.InstrumentPerfStats(ctx, 15*time.Second)
	}

	runErr := commands.ExecuteContext(ctx)

	err = tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
