// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/guild"
	"github.com/bindery/bindery/internal/logging"
	"github.com/bindery/bindery/internal/roblox"
)

// listedBindCap bounds how many bind descriptions are printed in full.
const listedBindCap = 5

// NewBindsCmd creates the binds subcommand group.
func NewBindsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binds",
		Short: "Inspect and validate bind configurations",
	}
	cmd.AddCommand(newBindsListCmd())
	cmd.AddCommand(newBindsLintCmd())
	return cmd
}

func newBindsListCmd() *cobra.Command {
	var (
		guildID  string
		category string
		entityID int64
		showAll  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a guild's binds with human-readable descriptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBindsList(cmd, guildID, category, entityID, showAll)
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "guild id (required)")
	cmd.Flags().StringVar(&category, "category", "", "filter by bind category (group, badge, gamepass, catalogAsset, verified, unverified)")
	cmd.Flags().Int64Var(&entityID, "entity", 0, "filter by Roblox entity id")
	cmd.Flags().BoolVar(&showAll, "all", false, "print every bind instead of the first few")
	_ = cmd.MarkFlagRequired("guild") //nolint:errcheck
	return cmd
}

func runBindsList(cmd *cobra.Command, guildID, category string, entityID int64, showAll bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = logging.ContextWithGuild(ctx, guildID)

	svc, _, cleanup, err := newGuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	q := guild.Query{EntityID: entityID}
	if category != "" {
		kind := roblox.EntityKind(category)
		if !kind.Valid() {
			return oops.Code("CONFIG_INVALID").With("category", category).Errorf("unknown bind category")
		}
		q.Category = kind
	}

	binds, err := svc.Binds(ctx, guildID, q)
	if err != nil {
		return err
	}
	if len(binds) == 0 {
		cmd.Println("No binds configured.")
		return nil
	}

	shown := binds
	if !showAll && len(binds) > listedBindCap {
		shown = binds[:listedBindCap]
	}
	for _, b := range shown {
		cmd.Printf("- %s\n", b)
	}
	if rest := len(binds) - len(shown); rest > 0 {
		cmd.Printf("...and %d more. Use --all to see every bind.\n", rest)
	}
	return nil
}

func newBindsLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <binds.json>",
		Short: "Validate a bind document against the schema and semantic rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBindsLint(cmd, args[0])
		},
	}
}

func runBindsLint(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return oops.Code("INVALID_BIND").With("path", path).Wrapf(err, "read bind document")
	}

	if err := bind.ValidateSchema(raw); err != nil {
		cmd.Printf("Schema check failed:\n  %s\n", bind.FormatSchemaError(err))
		return oops.Code("INVALID_BIND").Wrap(err)
	}

	var doc bind.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return oops.Code("INVALID_BIND").Wrapf(err, "parse bind document")
	}

	var bad int
	for i, b := range doc.Binds {
		if err := b.Validate(); err != nil {
			bad++
			cmd.Printf("bind %d: %v\n", i, err)
		}
	}
	if bad > 0 {
		return oops.Code("INVALID_BIND").Errorf("%d of %d binds failed validation", bad, len(doc.Binds))
	}

	cmd.Printf("OK: %d binds valid\n", len(doc.Binds))
	return nil
}
