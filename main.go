// ibdreplay converts InnoDB table-space files to SQL and replays them into MySQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tawesh/idb-to-sql/cmd"
	"github.com/Tawesh/idb-to-sql/internal/config"
	"github.com/Tawesh/idb-to-sql/internal/exitcode"
	"github.com/Tawesh/idb-to-sql/internal/logger"
)

// Build information (set by ldflags)
var (
	version   = "0.3.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		logger.Error("%v", err)
		os.Exit(exitcode.ExitWithCode(err))
	}

	cfg := config.New()
	cfg.Version = version
	cfg.BuildTime = buildTime
	cfg.GitCommit = gitCommit

	log := logger.New(cfg.EffectiveLogLevel(), cfg.LogFormat)

	if err := cmd.Execute(ctx, cfg, log); err != nil {
		logger.Error("%v", err)
		cancel()
		os.Exit(exitcode.ExitWithCode(err))
	}
}
