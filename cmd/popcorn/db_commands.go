package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"popcorn/internal/catalog"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Catalog database maintenance",
	}

	dbCmd.AddCommand(newDBCheckCommand(ctx))
	dbCmd.AddCommand(newDBVacuumCommand(ctx))

	return dbCmd
}

func newDBCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, health)
				}

				rows := [][]string{
					{"Path", health.DBPath},
					{"Exists", yesNo(health.DatabaseExists)},
					{"Readable", yesNo(health.DatabaseReadable)},
					{"Schema version", health.SchemaVersion},
					{"Integrity", yesNo(health.IntegrityCheck)},
					{"Records", strconv.Itoa(health.TotalRecords)},
					{"Field items", strconv.Itoa(health.TotalItems)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Check", "Result"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				if len(health.MissingTables) > 0 {
					return fmt.Errorf("missing tables: %v", health.MissingTables)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newDBVacuumCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Only one maintenance run at a time; a second invocation
			// bails out instead of queueing behind the first.
			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "maintenance.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire maintenance lock: %w", err)
			}
			if !locked {
				return errors.New("another maintenance run is in progress")
			}
			defer func() { _ = lock.Unlock() }()

			return ctx.withStore(func(store *catalog.Store) error {
				out := cmd.OutOrStdout()
				if purge {
					removed, err := store.PurgeFinalized(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Purged %d finalized contribution(s)\n", removed)
				}
				if err := store.Vacuum(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "Database compacted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Also remove finalized contributions and rejected items")
	return cmd
}
