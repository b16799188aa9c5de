package main

import (
	"context"
	"errors"
	"os"

	"github.com/averymorin/tunelist/internal/services"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	auth := services.NewAuthClient(services.AuthOpts{
		BaseURL:   config.Backend.URL,
		AnonKey:   config.Backend.AnonKey,
		TokenPath: config.Auth.TokenPath,
		Logger:    logger,
	})
	if err := auth.LoadSession(); err != nil {
		logger.Debug("no saved session", "error", err)
	}

	client := services.NewClient(services.ClientOpts{
		BaseURL:   config.Backend.URL,
		AnonKey:   config.Backend.AnonKey,
		Schema:    config.Backend.Schema,
		RateLimit: config.Backend.RateLimit,
		Session:   auth,
		Logger:    logger,
	})

	realtime := services.NewRealtimeClient(services.RealtimeOpts{
		URL:     config.Backend.RealtimeURL,
		AnonKey: config.Backend.AnonKey,
		Session: auth,
		Logger:  logger,
	})

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Auth:     auth,
		Backend:  client,
		Realtime: realtime,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "tunelist",
		Usage:    "Sync and watch your Tunelist song & playlist libraries",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
