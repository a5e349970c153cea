package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/formatter"
	"github.com/askdb/askdb/internal/pool"
)

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:        "ask",
		Usage:       "Run one natural-language query and print the result",
		ArgsUsage:   " <question>",
		Description: `Compile the question to SQL, execute it and render the rows.`,
		Flags: append(configFlags(),
			&cli.BoolFlag{
				Name:  "timings",
				Usage: "print per-stage timings",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			question := strings.TrimSpace(args.First())
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			manager := pool.NewManager(logger)
			defer manager.Close()

			eng, err := buildEngine(ctx, cfg, manager, logger)
			if err != nil {
				return err
			}

			return runAsk(ctx, eng, question, cmd.Bool("timings"))
		},
	}
}

// runAsk executes one question and prints the outcome. A failed query is
// already rendered with its suggestions, so the command exits nonzero
// without printing a second message.
func runAsk(ctx context.Context, eng *engine.Engine, question string, showTimings bool) error {
	s := newSpinner(" thinking...")
	s.Start()
	result := eng.Query(ctx, question)
	s.Stop()

	f := formatter.NewFormatter()
	fmt.Println(f.FormatResult(result))

	if showTimings {
		fmt.Println()
		fmt.Println(f.FormatTimings(result.Timings))
	}

	if result.Status != engine.StatusSuccess {
		return cli.Exit("", 1)
	}

	return nil
}
