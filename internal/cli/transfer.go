package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinvault/internal/archive"
	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/transfer"
	"github.com/dukerupert/kinvault/internal/ui"
)

func (a *app) passphrase(flag string) string {
	if flag != "" {
		return flag
	}
	v, _ := a.lookupEnv("KINVAULT_EXPORT_PASSPHRASE")
	return v
}

func (a *app) exportCmd() *cobra.Command {
	var (
		output     string
		passphrase string
		upload     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every family member and record as JSON",
		Long: `Export writes the acting user's whole family tree, with sensitive values
decrypted, as a JSON document.

With --passphrase (or KINVAULT_EXPORT_PASSPHRASE) the document is sealed
with Argon2id and AES-256-GCM. --upload sends the sealed document to the
configured S3 bucket instead of writing a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			pass := a.passphrase(passphrase)

			if upload {
				if pass == "" {
					return fmt.Errorf("--upload needs a passphrase: %w", kverrors.ErrValidation)
				}
				spinner, cleanup := a.startSpinner("Uploading sealed export...")
				defer cleanup()
				rec, err := a.vault.UploadExport(ctx, pass)
				if err != nil {
					return err
				}
				spinner.FinalMSG = fmt.Sprintf("%s Uploaded %s %s", ui.Done(),
					ui.Path.Sprint(rec.S3Key), ui.Muted.Sprintf("archive #%d", rec.ID))
				return nil
			}

			spinner, cleanup := a.startSpinner("Exporting...")
			defer cleanup()

			payload, err := a.vault.ExportJSON(ctx)
			if err != nil {
				return err
			}

			switch {
			case pass != "":
				if output == "" {
					return fmt.Errorf("a sealed export needs --output: %w", kverrors.ErrValidation)
				}
				if err := archive.WriteFile(output, payload, pass); err != nil {
					return err
				}
				spinner.FinalMSG = fmt.Sprintf("%s Sealed export written to %s", ui.Done(), ui.Path.Sprint(output))
			case output != "" && output != "-":
				if err := os.WriteFile(output, payload, 0600); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				spinner.FinalMSG = fmt.Sprintf("%s Export written to %s", ui.Done(), ui.Path.Sprint(output))
			default:
				if _, err := cmd.OutOrStdout().Write(append(payload, '\n')); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "seal the export with this passphrase")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the sealed export to S3")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an export document into the acting user's vault",
		Long: `Import creates every family member and record in the document under the
acting user, with new ids. Entries without a member name are skipped.

Every value is checked before anything is written, so an invalid document
imports nothing. A storage error part way through keeps what was imported
before it.

Use "-" to read from stdin. With --passphrase the input is opened as a
sealed export, from a file or from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			pass := a.passphrase(passphrase)

			var payload []byte
			switch {
			case args[0] == "-":
				payload, err = io.ReadAll(cmd.InOrStdin())
				if err == nil && pass != "" {
					payload, err = archive.Open(payload, pass)
					if err != nil {
						err = fmt.Errorf("open sealed export: %v: %w", err, kverrors.ErrValidation)
					}
				}
			case pass != "":
				payload, err = archive.ReadFile(args[0], pass)
				if err != nil {
					err = fmt.Errorf("%v: %w", err, kverrors.ErrValidation)
				}
			default:
				payload, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			spinner, cleanup := a.startSpinner("Importing...")
			defer cleanup()

			result, err := a.vault.Import(ctx, payload)
			spinner.FinalMSG = summarizeImport(result, err)
			return err
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase of a sealed export")
	return cmd
}

func summarizeImport(r transfer.Result, err error) string {
	counts := fmt.Sprintf("%d member(s), %d record(s)", r.Members, r.RecordTotal())
	if r.Skipped > 0 {
		counts += ", " + ui.Warning.Sprintf("%d skipped", r.Skipped)
	}
	if err != nil {
		return fmt.Sprintf("%s Import stopped after %s", ui.Failed(), counts)
	}
	return fmt.Sprintf("%s Imported %s", ui.Done(), counts)
}
