package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/bootstrap"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Lleva el esquema del ledger a la versión actual (idempotente)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
			if err != nil {
				return err
			}
			defer store.Close()
			version, err := store.DB.UserVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: esquema v%d\n", store.DB.Path(), version)
			return nil
		},
	}
}
