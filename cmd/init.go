package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/config"
)

func InitCommand() *cli.Command {
	return &cli.Command{
		Name:        "init",
		Usage:       "Write a starter configuration file",
		Description: `Write the default configuration for hand editing. Credentials are left empty; set them in the file or through ASKDB_DB_* environment variables.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "config file path (defaults to the user config directory)",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "overwrite an existing file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("out")
			if path == "" {
				path = filepath.Join(config.GetConfigDir(), "config.json")
			}

			return runInit(path, cmd.Bool("force"))
		},
	}
}

func runInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.SaveConfigTo(config.DefaultConfig(), path); err != nil {
		return err
	}

	fmt.Printf("Wrote starter configuration to %s\n", path)
	fmt.Println("Edit the database section, then run 'askdb status --connect' to verify.")

	return nil
}
