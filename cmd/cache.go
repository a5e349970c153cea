package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/formatter"
)

func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the schema artifact cache",
		Commands: []*cli.Command{
			cacheInfoCommand(),
			cacheClearCommand(),
		},
	}
}

func cacheInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "List the cached schema artifacts",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			return runCacheInfo(store)
		},
	}
}

func runCacheInfo(store *cache.Store) error {
	entries, err := store.Entries()
	if err != nil {
		return err
	}

	f := formatter.NewFormatter()
	fmt.Println(f.FormatCacheEntries(store.Directory(), entries))

	return nil
}

func cacheClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove all cached schema artifacts",
		Flags: append(configFlags(),
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "skip the confirmation prompt",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			return runCacheClear(store, cmd.Bool("force"), os.Stdin)
		},
	}
}

// runCacheClear removes every entry after confirmation. Clearing is safe
// at any time; the next startup rebuilds from the schema source.
func runCacheClear(store *cache.Store, force bool, in io.Reader) error {
	entries, err := store.Entries()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("Cache is already empty.")
		return nil
	}

	if !force {
		fmt.Printf("This will delete %d cache entries under %s.\n", len(entries), store.Directory())
		fmt.Print("Type 'yes' to confirm: ")

		reader := bufio.NewReader(in)

		response, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Println("Operation cancelled.")
			return nil
		}
	}

	removed, err := store.Clear()
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d cache entries.\n", removed)

	return nil
}

// openStore builds the cache store from configuration.
func openStore(cmd *cli.Command) (*cache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	return cache.NewStore(cfg.Cache.Directory, cfg.Cache.FormatVersion, logger)
}
