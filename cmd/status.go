package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/formatter"
	"github.com/askdb/askdb/internal/pool"
)

func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the connection pool status",
		Description: `Report the pool state for the configured database. Without --connect
the pool is never built and the state reads 'uninitialized'; with
--connect the pool is established first, which doubles as a
connectivity check.`,
		Flags: append(configFlags(),
			&cli.BoolFlag{
				Name:  "connect",
				Usage: "establish the pool before reporting",
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

			if cmd.Bool("connect") {
				if _, err := openPool(ctx, cfg, manager); err != nil {
					return err
				}
			}

			return runStatus(manager, poolDescriptor(cfg))
		},
	}
}

// runStatus prints the redacted target and the pool snapshot.
func runStatus(manager *pool.Manager, desc pool.Descriptor) error {
	fmt.Println("Target: " + desc.Redacted())

	f := formatter.NewFormatter()
	fmt.Println(f.FormatPoolStatus(manager.Status()))

	return nil
}
