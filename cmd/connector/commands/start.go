package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/cursor-gcp-connector/internal/app"
	"github.com/florianilch/cursor-gcp-connector/internal/observability"
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:   "start",
		Usage:  "Starts the connector",
		Flags:  serverFlags(),
		Action: startAction,
	}
}

// serverFlags are shared by every command that resolves the configuration.
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "listen host (default: 0.0.0.0)",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "listen port (default: 4001)",
		},
		&cli.StringFlag{
			Name:  "backend-url",
			Usage: "LiteLLM base URL (default: http://localhost:4000)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log request bodies before and after rewriting",
		},
	}
}

func startAction(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	if cfg.Debug && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	// Set up observability before creating app
	shutdown, err := observability.Instrument(ctx, observability.Options{
		Level:    level,
		Format:   cfg.Log.Format,
		File:     cfg.Log.File,
		Exporter: cfg.Log.Exporter,
	})
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if shutdownErr := shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("observability shutdown: %w", shutdownErr))
		}
	}()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting", "version", cmd.Root().Version)

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
