package main

import (
	"github.com/spf13/cobra"
)

type repairLine struct {
	DepartmentID int64  `json:"department_id"`
	Level        int    `json:"level"`
	ParentLikeID string `json:"parent_like_id"`
}

func newRepairCmd() *cobra.Command {
	var (
		tenant string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Recompute level and parent_like_id from the pid chains",
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

			changed, err := env.service.RebuildPaths(env.ctx, tenantID, dryRun)
			if err != nil {
				return serviceCode(err)
			}
			for _, d := range changed {
				if err := writeJSONLine(cmd.OutOrStdout(), repairLine{DepartmentID: d.ID, Level: d.Level, ParentLikeID: d.ParentLikeID}); err != nil {
					return err
				}
			}
			status := "repaired"
			if dryRun {
				status = "dry_run"
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": status, "tenant_id": tenantID.String(), "changed": len(changed)})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report drifted departments without writing")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
