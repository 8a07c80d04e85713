package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/ui"
)

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "archive",
		Aliases: []string{"archives"},
		Short:   "Manage sealed exports stored in S3",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded exports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			archives, err := a.vault.ListArchives(ctx, limit)
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archives.")
				return nil
			}
			for _, ar := range archives {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n",
					ui.Muted.Sprintf("#%d", ar.ID), ar.CreatedAt.Format("2006-01-02 15:04"),
					ui.Status(string(ar.Status)), ar.Filename)
				if ar.ErrorMessage != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", ui.Error.Sprint(ar.ErrorMessage))
				}
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of archives to show")

	var output string
	download := &cobra.Command{
		Use:   "download <archive-id>",
		Short: "Download a sealed export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("archive", args[0])
			if err != nil {
				return err
			}
			if output == "" {
				return fmt.Errorf("--output is required: %w", kverrors.ErrValidation)
			}

			spinner, cleanup := a.startSpinner("Downloading...")
			defer cleanup()

			body, rec, err := a.vault.DownloadArchive(ctx, id)
			if err != nil {
				return err
			}
			defer body.Close()

			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			if _, err := io.Copy(f, body); err != nil {
				f.Close()
				return fmt.Errorf("write output: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			spinner.FinalMSG = fmt.Sprintf("%s Saved %s to %s", ui.Done(), rec.Filename, ui.Path.Sprint(output))
			return nil
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "file to write the sealed export to")

	var passphrase string
	restore := &cobra.Command{
		Use:   "restore <archive-id>",
		Short: "Download a sealed export and import it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("archive", args[0])
			if err != nil {
				return err
			}
			pass := a.passphrase(passphrase)
			if pass == "" {
				return fmt.Errorf("--passphrase is required: %w", kverrors.ErrValidation)
			}

			spinner, cleanup := a.startSpinner("Restoring...")
			defer cleanup()

			body, _, err := a.vault.DownloadArchive(ctx, id)
			if err != nil {
				return err
			}
			defer body.Close()
			sealed, err := io.ReadAll(body)
			if err != nil {
				return fmt.Errorf("read archive: %w", err)
			}

			result, err := a.vault.ImportSealed(ctx, sealed, pass)
			spinner.FinalMSG = summarizeImport(result, err)
			return err
		},
	}
	restore.Flags().StringVar(&passphrase, "passphrase", "", "passphrase the export was sealed with")

	remove := &cobra.Command{
		Use:     "remove <archive-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an uploaded export",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("archive", args[0])
			if err != nil {
				return err
			}
			if err := a.vault.DeleteArchive(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed archive %s\n", ui.Done(), ui.Muted.Sprintf("#%d", id))
			return nil
		},
	}

	cmd.AddCommand(list, download, restore, remove)
	return cmd
}
