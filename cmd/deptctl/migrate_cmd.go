package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/iota-identity/modules/department/infrastructure/persistence"
	"github.com/iota-uz/iota-identity/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending department schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connectDB(ctx, configuration.Use())
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := persistence.Migrate(ctx, pool)
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, m := range applied {
				if err := writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": "applied", "version": m.Version, "path": m.Path}); err != nil {
					return err
				}
			}
			version, err := persistence.SchemaVersion(ctx, pool)
			if err != nil {
				return withCode(exitDB, fmt.Errorf("read schema version: %w", err))
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": "migrated", "version": version, "applied": len(applied)})
		},
	}
}
