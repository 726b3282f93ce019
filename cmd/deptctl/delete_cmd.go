package main

import (
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var (
		tenant string
		ids    []int64
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete departments together with their descendants",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			env, err := openEnv(cmd, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.Delete(env.ctx, tenantID, ids); err != nil {
				return serviceCode(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": "deleted", "tenant_id": tenantID.String(), "ids": ids})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "Department id to delete (repeatable)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
