package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/formatter"
	"github.com/askdb/askdb/internal/pool"
)

func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start an interactive query session",
		Description: `Read questions line by line and run each one as a query. Type 'tables'
to list the schema, 'exit' or 'quit' to leave.`,
		Flags: append(configFlags(),
			&cli.BoolFlag{
				Name:  "timings",
				Usage: "print per-stage timings after each query",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
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

			return runRepl(ctx, eng, os.Stdin, cmd.Bool("timings"))
		},
	}
}

// runRepl loops over questions until EOF or an exit command. A failed
// query prints its error and the loop continues.
func runRepl(ctx context.Context, eng *engine.Engine, in io.Reader, showTimings bool) error {
	f := formatter.NewFormatter()

	fmt.Println("Available tables:")
	fmt.Println(f.FormatTables(eng.Snapshot().Tables))
	fmt.Println()
	fmt.Println("Type a question, 'tables' to list the schema, 'exit' to quit.")

	scanner := bufio.NewScanner(in)

	for {
		fmt.Print("askdb> ")

		if !scanner.Scan() {
			fmt.Println()
			break
		}

		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "tables":
			fmt.Println(f.FormatTables(eng.Snapshot().Tables))
			continue
		}

		s := newSpinner(" thinking...")
		s.Start()
		result := eng.Query(ctx, line)
		s.Stop()

		fmt.Println(f.FormatResult(result))

		if showTimings {
			fmt.Println(f.FormatTimings(result.Timings))
		}

		fmt.Println()
	}

	return scanner.Err()
}
