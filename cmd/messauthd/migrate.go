package main

import (
	"fmt"
	"os"

	"github.com/messline/messauth/store/pgstore"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// migrator is satisfied by *pgstore.Migrator.
type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

// newMigrator is swapped in tests.
var newMigrator = func(dsn string) (migrator, error) {
	return pgstore.NewMigrator(dsn)
}

var migrateDSN string

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL account schema",
	}
	cmd.PersistentFlags().StringVar(&migrateDSN, "dsn", "", "PostgreSQL URL (default: MESSAUTH_POSTGRES_DSN)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Schema dropped")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Println(formatVersion(v, dirty))
			return nil
		}),
	})
	return cmd
}

func withMigrator(run func(*cobra.Command, migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		dsn, err := resolveDSN()
		if err != nil {
			return err
		}
		m, err := newMigrator(dsn)
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
		}
		defer func() { _ = m.Close() }()
		return run(cmd, m)
	}
}

func resolveDSN() (string, error) {
	if migrateDSN != "" {
		return migrateDSN, nil
	}
	if dsn := os.Getenv("MESSAUTH_POSTGRES_DSN"); dsn != "" {
		return dsn, nil
	}
	return "", oops.Code("CONFIG_INVALID").Errorf("--dsn or MESSAUTH_POSTGRES_DSN is required")
}

func formatVersion(v uint, dirty bool) string {
	if v == 0 {
		return "no migrations applied"
	}
	if dirty {
		return fmt.Sprintf("version %d (dirty)", v)
	}
	return fmt.Sprintf("version %d", v)
}

// migrateUp is used by serve when postgres.migrate_on_start is set.
func migrateUp(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
