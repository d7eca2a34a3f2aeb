package main

import (
	"context"
	"zjubulletin/cmd/bulletin-cli/commands"
	"zjubulletin/lib/serviceutil"
	"zjubulletin/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	// credentials may live in a .env during development; missing file is fine
	godotenv.Load()

	ctx := serviceutil.SignalContext()
	tel, err := telemetry.SetupFromEnv(ctx, "bulletin-cli")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
