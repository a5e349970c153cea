package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/schema"
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Inspect and export the database schema",
		Commands: []*cli.Command{
			schemaShowCommand(),
			schemaExportCommand(),
		},
	}
}

func schemaShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Render the schema source file",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runSchemaShow(cfg.Schema.Path)
		},
	}
}

func runSchemaShow(path string) error {
	snap, err := schema.LoadFile(path)
	if err != nil {
		return err
	}

	fmt.Println(schema.RenderTables(snap.Tables))
	fmt.Printf("%d tables (snapshot %s)\n", len(snap.Tables), snap.Hash[:12])

	return nil
}

func schemaExportCommand() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Usage:       "Introspect the live database and write a schema source file",
		Description: `Read the catalog of the configured database and write it as a JSON schema source. Comments are exported where the catalog carries them; elsewhere they start empty and can be filled in by hand.`,
		Flags: append(configFlags(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (defaults to the configured schema path)",
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

			p, err := openPool(ctx, cfg, manager)
			if err != nil {
				return err
			}

			out := cmd.String("out")
			if out == "" {
				out = cfg.Schema.Path
			}

			return runSchemaExport(ctx, p, out)
		},
	}
}

// runSchemaExport writes the live catalog as canonical JSON schema source.
func runSchemaExport(ctx context.Context, p *pool.Pool, out string) error {
	snap, err := schema.Introspect(ctx, p.DB(), p.Driver())
	if err != nil {
		return err
	}

	src, err := schema.MarshalSource(snap.Tables)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, src, 0600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	fmt.Printf("Exported %d tables to %s\n", len(snap.Tables), out)

	return nil
}
