package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/cursor-gcp-connector/internal/app"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Checks that the connector and its backend answer health probes",
		Flags:  serverFlags(),
		Action: checkAction,
	}
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results := app.ProbeAll(ctx, http.DefaultClient, cfg)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	color := isTerminal(out)

	failed := 0
	for _, r := range results {
		status := paint("OK", colorGreen, color)
		detail := ""
		if !r.OK() {
			failed++
			status = paint("FAILED", colorRed, color)
			detail = "  " + r.Err.Error()
		}
		_, _ = fmt.Fprintf(out, "%-10s %-30s %s%s\n", r.Name, r.URL, status, detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d services unhealthy", failed, len(results))
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func paint(s, color string, enabled bool) string {
	if !enabled {
		return s
	}
	return color + s + colorReset
}
