package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
)

const suffixFlag = "suffix"

var backupCreateFlags = map[string]cobraflags.Flag{
	suffixFlag: &cobraflags.StringFlag{
		Name:  suffixFlag,
		Value: "manual",
		Usage: "Clase de sufijo del backup (letras, dígitos, guion)",
	},
}

func newBackupCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [create|list|prune|restore]",
		Short: "Copias de seguridad del archivo del ledger",
	}
	cmd.AddCommand(newBackupCreateCommand(e), newBackupListCommand(e), newBackupPruneCommand(e), newBackupRestoreCommand(e))
	return cmd
}

func newBackupCreateCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un backup consistente con acceso exclusivo al ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
			if err != nil {
				return err
			}
			defer store.Close()
			svc := backup.NewService(store.Ledger, store.DB.Path(), e.cfg.Backup.Dir, e.logg)
			b, err := svc.Create(ctx, backupCreateFlags[suffixFlag].GetString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.Path)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, backupCreateFlags)
	return cmd
}

func newBackupListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista los backups, del más reciente al más antiguo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := backup.NewService(nil, e.cfg.Ledger.Path, e.cfg.Backup.Dir, e.logg)
			list, err := svc.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NOMBRE\tSUFIJO\tBYTES\tCREADO")
			for _, b := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", b.Name, b.Suffix, b.Size, b.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newBackupPruneCommand(e *env) *cobra.Command {
	var retain int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Conserva los N backups más recientes por sufijo y borra el resto",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := backup.NewService(nil, e.cfg.Ledger.Path, e.cfg.Backup.Dir, e.logg)
			if retain <= 0 {
				retain = e.cfg.Backup.Retain
			}
			removed, err := svc.Prune(retain)
			for _, name := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "eliminado", name)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&retain, "retain", 0, "Backups conservados por sufijo (por defecto BACKUP_RETAIN)")
	return cmd
}

func newBackupRestoreCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore NAME",
		Short: "Restaura un backup sobre el archivo del ledger (detenga antes el servidor)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			safety, err := backup.Restore(cmd.Context(), e.cfg.Backup.Dir, args[0], e.cfg.Ledger.Path, time.Now())
			if err != nil {
				return err
			}
			if safety != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "copia previa guardada en", safety)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "restaurado", args[0])
			return nil
		},
	}
}
