package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	name    = "riskctl"
	version = "v0.0.1-default"
	commit  = ""
)

func main() {
	initLogging(false)

	app := newApp(os.Stdout, newSurveyPrompter())
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

// newApp builds a fresh command tree; flags carry parse state, so every run
// gets its own.
func newApp(out io.Writer, p Prompter) *cli.Command {
	return &cli.Command{
		Name:            name,
		Version:         fmt.Sprintf("%s (commit: %s)", version, commit),
		Usage:           "Inspect model artifacts and score hypoxemia risk from the terminal",
		Writer:          out,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Prints verbose logs (optional, default: false)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				initLogging(true)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			inspectCmd(),
			scoreCmd(),
			promptCmd(p),
			migrateCmd(),
		},
	}
}

func initLogging(debug bool) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML, "yml":
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
