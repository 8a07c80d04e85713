package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/ui"
)

type doctorKind struct {
	Kind      string `json:"kind"`
	Encrypted int    `json:"encrypted"`
	Plaintext int    `json:"plaintext"`
}

type doctorReport struct {
	DefaultKey bool         `json:"default_key"`
	S3Enabled  bool         `json:"s3_enabled"`
	Kinds      []doctorKind `json:"kinds"`
}

func (a *app) doctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the vault's encryption health",
		Long: `Doctor counts, across all users, the sensitive values stored encrypted under
the configured key and those stored as plaintext. Plaintext values are
typically rows written before encryption was enabled; they are encrypted
the next time the record is updated. Values written under a different key
also count as plaintext.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			audit, err := a.vault.Audit(cmd.Context())
			if err != nil {
				return err
			}

			report := doctorReport{
				DefaultKey: a.vault.UsingDefaultKey(),
				S3Enabled:  a.vault.ArchivesEnabled(),
			}
			plaintext := 0
			for _, k := range audit {
				report.Kinds = append(report.Kinds, doctorKind{Kind: k.Kind.String(), Encrypted: k.Encrypted, Plaintext: k.Plaintext})
				plaintext += k.Plaintext
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			if report.DefaultKey {
				fmt.Fprintf(out, "%s Using the built-in development key; set %s\n",
					ui.Caution(), ui.Code.Sprint("KINVAULT_ENCRYPTION_KEY"))
			} else {
				fmt.Fprintf(out, "%s Encryption key configured\n", ui.Done())
			}
			if report.S3Enabled {
				fmt.Fprintf(out, "%s Remote archive storage configured\n", ui.Done())
			} else {
				fmt.Fprintf(out, "%s Remote archive storage not configured\n", ui.Muted.Sprint("-"))
			}

			for _, k := range audit {
				d, _ := kind.Describe(k.Kind)
				icon := ui.Done()
				if k.Plaintext > 0 {
					icon = ui.Caution()
				}
				fmt.Fprintf(out, "%s %-24s %d encrypted, %d plaintext\n", icon, d.Label, k.Encrypted, k.Plaintext)
			}

			fmt.Fprintln(out)
			if plaintext > 0 {
				fmt.Fprintf(out, "Summary: %s\n", ui.Warning.Sprintf("%d plaintext value(s)", plaintext))
			} else {
				fmt.Fprintln(out, "Summary: all sensitive values encrypted")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}
