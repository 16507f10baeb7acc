// Package main is the entry point for the owners club server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (internal/config: defaults, club.yaml, CLUB_* env)
// 2. Create the logger
// 3. Start the server
//
// All actual logic lives in the internal packages.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/owners-club/internal/config"
	"github.com/sakif/owners-club/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text output for humans; the level comes from CLUB_LOG_LEVEL.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if !cfg.SecureCookies {
		logger.Warn("secure_cookies is off; only use this over plain-HTTP development setups")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
