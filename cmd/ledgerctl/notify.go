package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
)

func newNotifyCommand(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Avisa los artículos en stock bajo pendientes de aviso",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			ev := notification.NewEvaluator(store.Ledger, notification.NewLogNotifier(e.logg), e.cfg.Notification.RenotifyInterval, e.logg)
			now := time.Now().UTC()
			if dryRun {
				due, err := ev.Due(ctx, now)
				if err != nil {
					return err
				}
				for _, a := range due {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d/%d\n", a.Reference, a.Quantity, a.MinimumQuantity)
				}
				return nil
			}
			res, err := ev.Run(ctx, now)
			if res != nil {
				for _, ref := range res.Notified {
					fmt.Fprintln(cmd.OutOrStdout(), "avisado", ref)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Solo lista los artículos pendientes, sin marcarlos")
	return cmd
}
