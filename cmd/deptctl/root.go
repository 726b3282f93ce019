package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deptctl",
		Short:         "Department tree maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("actor", "", "user uuid recorded as created_by/updated_by")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newRepairCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newMonitorCmd())
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
