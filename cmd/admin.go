package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hristiyandudev55/nurblifebg/internal/auth"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminAddCmd())
	return cmd
}

func newAdminAddCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an admin (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{migrate: true})
			if err != nil {
				return err
			}
			defer a.Close()

			// the session keys are not needed to create an account
			store := auth.NewStore(a.admins, a.cfg.CookieHashKey, a.cfg.CookieBlockKey)
			id, err := store.CreateAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id=%d)\n", username, id)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
