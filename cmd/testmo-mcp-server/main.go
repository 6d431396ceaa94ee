package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcp-testmo/testmo-mcp-server/internal/config"
)

var (
	version = "version" // Application version
	commit  = "commit"  // Git commit hash
	date    = "date"    // Build date
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appVersion := config.AppVersion{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if err := config.RunApp(ctx, appVersion); err != nil {
		slog.Error("application error", "error", err)
		stop()
		os.Exit(1)
	}
}
