package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/ui"
)

func (a *app) recordCmd() *cobra.Command {
	var (
		kindName   string
		memberID   int64
		fieldPairs []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "record",
		Aliases: []string{"records"},
		Short:   "Manage the records attached to a family member",
		Long: `Manage documents, accounts, insurances_loans, lockers and properties.

Fields are given as repeated --field name=value flags. Numeric fields
(value, amount, premium_emi) accept numbers; an empty value clears them.`,
	}
	cmd.PersistentFlags().StringVarP(&kindName, "kind", "k", "", "record kind: documents, accounts, insurances_loans, lockers, properties")
	cmd.PersistentFlags().Int64VarP(&memberID, "member", "m", 0, "family member id")
	_ = cmd.MarkPersistentFlagRequired("kind")
	_ = cmd.MarkPersistentFlagRequired("member")

	resolve := func(cmd *cobra.Command) (context.Context, kind.Kind, error) {
		ctx, err := a.identity(cmd.Context())
		if err != nil {
			return nil, 0, err
		}
		k, err := parseKind(kindName)
		if err != nil {
			return nil, 0, err
		}
		return ctx, k, nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List records of one kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, k, err := resolve(cmd)
			if err != nil {
				return err
			}
			records, err := a.vault.ListRecords(ctx, memberID, k)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s.\n", k)
				return nil
			}
			for i := range records {
				printRecord(cmd.OutOrStdout(), k, &records[i])
			}
			return nil
		},
	}
	list.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, k, err := resolve(cmd)
			if err != nil {
				return err
			}
			fields, err := parseFields(k, fieldPairs)
			if err != nil {
				return err
			}
			r, err := a.vault.CreateRecord(ctx, memberID, k, fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s record %s\n", ui.Done(), k, ui.Muted.Sprintf("#%d", r.ID))
			return nil
		},
	}
	add.Flags().StringArrayVarP(&fieldPairs, "field", "f", nil, "field as name=value (repeatable)")

	update := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Update fields of a record; others are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, k, err := resolve(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("record", args[0])
			if err != nil {
				return err
			}
			fields, err := parseFields(k, fieldPairs)
			if err != nil {
				return err
			}
			r, err := a.vault.UpdateRecord(ctx, memberID, k, id, fields)
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), k, r)
			return nil
		},
	}
	update.Flags().StringArrayVarP(&fieldPairs, "field", "f", nil, "field as name=value (repeatable)")

	remove := &cobra.Command{
		Use:     "remove <record-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, k, err := resolve(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("record", args[0])
			if err != nil {
				return err
			}
			if err := a.vault.DeleteRecord(ctx, memberID, k, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s record %s\n", ui.Done(), k, ui.Muted.Sprintf("#%d", id))
			return nil
		},
	}

	cmd.AddCommand(list, add, update, remove)
	return cmd
}

func (a *app) printRecordCounts(ctx context.Context, w io.Writer, memberID int64) error {
	for _, k := range kind.All() {
		records, err := a.vault.ListRecords(ctx, memberID, k)
		if err != nil {
			return err
		}
		d, _ := kind.Describe(k)
		fmt.Fprintf(w, "  %-24s %d\n", d.Label+":", len(records))
	}
	return nil
}
