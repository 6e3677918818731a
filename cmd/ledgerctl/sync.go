package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	ledgersync "github.com/jhoicas/stock-ledger/internal/application/sync"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
)

func newSyncCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [export|import]",
		Short: "Copia completa entre el ledger y el almacén PostgreSQL",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Reemplaza el contenido de PostgreSQL por el ledger actual",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withExporter(cmd.Context(), e, func(ctx context.Context, exp *ledgersync.Exporter) error {
					run, err := exp.Export(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d artículos, %d movimientos\n", run.ID, run.Articles, run.Movements)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "import",
			Short: "Reemplaza el ledger por el contenido de PostgreSQL (haga antes un backup)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withExporter(cmd.Context(), e, func(ctx context.Context, exp *ledgersync.Exporter) error {
					res, err := exp.Import(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d artículos, %d movimientos importados (%d sin actor)\n",
						res.Articles, res.Movements, res.ActorsCleared)
					return nil
				})
			},
		},
	)
	return cmd
}

func withExporter(ctx context.Context, e *env, fn func(ctx context.Context, exp *ledgersync.Exporter) error) error {
	store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	pool, err := postgres.NewPool(ctx, e.cfg.Sync)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	return fn(ctx, ledgersync.NewExporter(store.Ledger, postgres.NewSnapshotRepository(pool), e.logg))
}
