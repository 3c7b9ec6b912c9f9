// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/seed"
)

// NewValidateSeedsCmd creates the validate-seeds subcommand.
func NewValidateSeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-seeds <file>...",
		Short: "Validate seed files without applying them",
		Long: `Checks each seed YAML file against the seed schema and version
constraint. No database connection is needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidateSeeds,
	}
}

func runValidateSeeds(cmd *cobra.Command, args []string) error {
	var failed bool
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed = true
			continue
		}
		f, err := seed.Parse(data)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed = true
			continue
		}
		cmd.Printf("%s: ok (%d users)\n", path, len(f.Users))
	}
	if failed {
		return oops.Code("SEED_INVALID").Errorf("one or more seed files failed validation")
	}
	return nil
}
