// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package main

import (
	"encoding/json"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bindery/bindery/internal/bind"
)

// NewConvertCmd creates the convert subcommand.
func NewConvertCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "convert <legacy.json>",
		Short: "Convert a legacy bind document to the current format",
		Long: `Convert a V3 guild document (groupIDs and roleBinds fields) into the
current bind list and print it as JSON. The conversion is deterministic;
running it twice on the same input produces the same output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write converted binds to a file instead of stdout")
	return cmd
}

func runConvert(cmd *cobra.Command, legacyPath, outPath string) error {
	raw, err := os.ReadFile(legacyPath) //nolint:gosec // operator-supplied path
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("path", legacyPath).Wrapf(err, "read legacy document")
	}

	var legacy bind.LegacyDocument
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return oops.Code("MIGRATION_FAILED").With("path", legacyPath).Wrapf(err, "parse legacy document")
	}
	if legacy.Empty() {
		return oops.Code("MIGRATION_FAILED").Errorf("document has no legacy binds to convert")
	}

	converted, err := bind.FromLegacy(&legacy)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(bind.Document{Binds: converted}, "", "  ")
	if err != nil {
		return oops.Code("MIGRATION_FAILED").Wrapf(err, "encode converted binds")
	}
	out = append(out, '\n')

	if outPath != "" {
		if err := os.WriteFile(outPath, out, 0o600); err != nil {
			return oops.Code("MIGRATION_FAILED").With("path", outPath).Wrapf(err, "write output")
		}
		cmd.Printf("Converted %d binds to %s\n", len(converted), outPath)
		return nil
	}

	cmd.Print(string(out))
	return nil
}
