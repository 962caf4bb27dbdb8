// Package main is the entry point for the catalog command line tool.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/config"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	// Prompts and listings own stdout.
	logger, err := logging.New(cfg.LogLevel, "console", logging.OutputStderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		return 1
	}
	return 0
}
