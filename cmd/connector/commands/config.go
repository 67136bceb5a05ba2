package commands

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Prints the effective configuration as TOML",
		Flags: serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out, err := cfg.TOML()
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			_, err = w.Write(out)
			return err
		},
	}
}
