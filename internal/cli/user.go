package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinvault/internal/ui"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage vault users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.vault.Users.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created user %s %s\n",
				ui.Done(), ui.Highlight.Sprint(u.Username), ui.Muted.Sprintf("#%d", u.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.vault.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users. Create one with", ui.Code.Sprint("kinvault user add <name>"))
				return nil
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Muted.Sprintf("#%d", u.ID), u.Username)
			}
			return nil
		},
	})
	return cmd
}
