package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/cursor-gcp-connector/internal/app"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	return newRootCommand(version, commit).Run(ctx, args)
}

func newRootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "connector",
		Usage:   "Rewrites Anthropic-style chat requests into OpenAI form for a LiteLLM backend",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars(app.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error) (default: info)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json) (default: text)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also append logs to this file",
			},
		},
		Commands: []*cli.Command{
			startCommand(),
			checkCommand(),
			configCommand(),
		},
	}
}

// flagKeys maps CLI flags to config keys. Only flags the user set override
// lower configuration layers.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"log-file":    "log.file",
	"host":        "server.host",
	"port":        "server.port",
	"backend-url": "backend.url",
	"debug":       "debug",
}

// loadConfig resolves the configuration for cmd, applying explicitly set flags last.
func loadConfig(cmd *cli.Command) (*app.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if !cmd.IsSet(flag) {
			continue
		}
		overrides[key] = cmd.Value(flag)
	}

	cfg, err := app.Load(cmd.String("config"), nil, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
