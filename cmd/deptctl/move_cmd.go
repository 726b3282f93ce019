package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

func newMoveCmd() *cobra.Command {
	var (
		tenant string
		id     int64
		parent int64
	)
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a department, with its subtree, under a new parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			env, err := openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.Update(env.ctx, tenantID, []*department.UpdateDTO{{ID: id, PID: &parent}}); err != nil {
				return serviceCode(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": "moved", "id": id, "pid": parent})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().Int64Var(&id, "id", 0, "Department id (required)")
	cmd.Flags().Int64Var(&parent, "parent", department.RootPID, "New parent id, 0 for the tenant root")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
