package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinvault/internal/model"
	"github.com/dukerupert/kinvault/internal/ui"
)

func (a *app) memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "member",
		Aliases: []string{"members"},
		Short:   "Manage family members",
	}

	var in model.FamilyMemberInput
	addMemberFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&in.Relationship, "relationship", "", "relationship to the user")
		c.Flags().StringVar(&in.DOB, "dob", "", "date of birth")
		c.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a family member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			in.Name = args[0]
			m, err := a.vault.CreateMember(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s %s\n",
				ui.Done(), ui.Highlight.Sprint(m.Name), ui.Muted.Sprintf("#%d", m.ID))
			return nil
		},
	}
	addMemberFlags(add)

	list := &cobra.Command{
		Use:   "list",
		Short: "List family members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			members, err := a.vault.ListMembers(ctx)
			if err != nil {
				return err
			}
			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No family members yet.")
				return nil
			}
			for i := range members {
				printMember(cmd.OutOrStdout(), &members[i])
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <member-id>",
		Short: "Show a family member and a count of their records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			m, err := a.vault.GetMember(ctx, id)
			if err != nil {
				return err
			}
			printMember(cmd.OutOrStdout(), m)
			return a.printRecordCounts(ctx, cmd.OutOrStdout(), m.ID)
		},
	}

	update := &cobra.Command{
		Use:   "update <member-id>",
		Short: "Update a family member; empty flags keep the current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			m, err := a.vault.UpdateMember(ctx, id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s\n", ui.Done(), ui.Highlight.Sprint(m.Name))
			return nil
		},
	}
	update.Flags().StringVar(&in.Name, "name", "", "new name")
	addMemberFlags(update)

	remove := &cobra.Command{
		Use:     "remove <member-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a family member and all of their records",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			if err := a.vault.DeleteMember(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed member %s\n", ui.Done(), ui.Muted.Sprintf("#%d", id))
			return nil
		},
	}

	cmd.AddCommand(add, list, show, update, remove)
	return cmd
}
