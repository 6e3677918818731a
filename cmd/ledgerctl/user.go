package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
)

const (
	usernameFlag = "username"
	passwordFlag = "password"
	roleFlag     = "role"
)

var userAddFlags = map[string]cobraflags.Flag{
	usernameFlag: &cobraflags.StringFlag{
		Name:  usernameFlag,
		Value: "",
		Usage: "Nombre de usuario (3-32 caracteres)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Contraseña (8-72 caracteres)",
	},
	roleFlag: &cobraflags.StringFlag{
		Name:  roleFlag,
		Value: "member",
		Usage: "Rol: admin o member",
	},
}

func newUserCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user [add|delete|list]",
		Short: "Administración de usuarios",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Crea un usuario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
			if err != nil {
				return err
			}
			defer store.Close()
			u, err := store.Auth.CreateUser(ctx, dto.CreateUserRequest{
				Username: userAddFlags[usernameFlag].GetString(),
				Password: userAddFlags[passwordFlag].GetString(),
				Role:     userAddFlags[roleFlag].GetString(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "usuario %d %s (%s)\n", u.ID, u.Username, u.Role)
			return nil
		},
	}
	cobraflags.RegisterMap(add, userAddFlags)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Elimina un usuario; sus movimientos quedan sin actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("id inválido %q", args[0])
			}
			ctx := cmd.Context()
			store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Auth.DeleteUser(ctx, id)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los usuarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := bootstrap.OpenLedger(ctx, e.cfg, e.logg, nil)
			if err != nil {
				return err
			}
			defer store.Close()
			users, err := store.Auth.ListUsers(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSUARIO\tROL\tCREADO")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, del, list)
	return cmd
}
