package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type violationLine struct {
	DepartmentID int64  `json:"department_id"`
	Rule         string `json:"rule"`
	Message      string `json:"message"`
}

func newCheckCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the stored level and parent_like_id of every department",
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

			violations, err := env.service.CheckTree(env.ctx, tenantID)
			if err != nil {
				return serviceCode(err)
			}
			for _, v := range violations {
				if err := writeJSONLine(cmd.OutOrStdout(), violationLine{DepartmentID: v.DepartmentID, Rule: v.Rule, Message: v.Message}); err != nil {
					return err
				}
			}
			if len(violations) > 0 {
				return withCode(exitValidation, fmt.Errorf("%d department invariant violations", len(violations)))
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": "ok", "tenant_id": tenantID.String()})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
