// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bindery/bindery/internal/audit"
)

// NewMigrateCmd creates the migrate subcommand group for the audit schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit database schema",
		Long:  `Apply, roll back, or inspect the PostgreSQL schema that stores the evaluation audit trail.`,
	}
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateVersionCmd())
	return cmd
}

// auditDatabaseURL resolves the audit database from config or the
// DATABASE_URL environment variable.
func auditDatabaseURL(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Audit.DatabaseURL != "" {
		return cfg.Audit.DatabaseURL, nil
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	return "", oops.Code("CONFIG_INVALID").Errorf("set audit.database_url in config or the DATABASE_URL environment variable")
}

func withMigrator(cmd *cobra.Command, fn func(*audit.Migrator) error) error {
	url, err := auditDatabaseURL(cmd)
	if err != nil {
		return err
	}
	migrator, err := audit.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			cmd.PrintErrf("warning: closing migrator: %v\n", err)
		}
	}()
	return fn(migrator)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *audit.Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops the audit trail)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *audit.Migrator) error {
				cmd.Println("Rolling back migrations...")
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rollback completed")
				return nil
			})
		},
	}
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *audit.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					cmd.Println("No migrations applied")
					return nil
				}
				if dirty {
					cmd.Printf("Version %d (dirty)\n", version)
					return nil
				}
				cmd.Printf("Version %d\n", version)
				return nil
			})
		},
	}
}
