// Package cmd wires the askdb commands. Each command loads configuration
// itself, builds its collaborators explicitly and injects them into the
// run functions, which keeps every run function testable with fakes.
package cmd

import (
	"context"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/logging"
)

// Execute runs the CLI with the process arguments.
func Execute() error {
	return rootCommand().Run(context.Background(), os.Args)
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "askdb",
		Usage: "Ask your database questions in natural language",
		Description: `askdb turns a natural-language question into a validated read-only SQL
query, executes it through a managed connection pool and renders the rows.
Parsed schema artifacts are cached between runs so repeat startups are fast.`,
		Commands: []*cli.Command{
			AskCommand(),
			ReplCommand(),
			SchemaCommand(),
			CacheCommand(),
			StatusCommand(),
			InitCommand(),
		},
	}
}

// configFlags are shared by every command that loads configuration. They
// override the config file and environment.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "schema",
			Usage: "path to the schema source file",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "schema artifact cache directory",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "disable the schema artifact cache",
		},
	}
}

// loadConfig resolves the effective configuration for a command: config
// file, then environment, then the command's override flags.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
		"log-level": cmd.String("log-level"),
		"schema":    cmd.String("schema"),
		"cache-dir": cmd.String("cache-dir"),
		"no-cache":  cmd.Bool("no-cache"),
	})
	if err != nil {
		return nil, err
	}

	cfg.ExpandAllPaths()

	return cfg, nil
}

// newLogger builds the command logger from configuration.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging)
}

// newSpinner returns a stopped wait indicator writing to stderr so piped
// stdout stays clean.
func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix

	return s
}
