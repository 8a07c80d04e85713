// Package cli is the kinvault command tree. It acts as the identity
// provider for the vault: the --user flag (or KINVAULT_USER) names the
// acting user and is trusted as given.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinvault/internal/auth"
	"github.com/dukerupert/kinvault/internal/config"
	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/logging"
	"github.com/dukerupert/kinvault/internal/ui"
	"github.com/dukerupert/kinvault/internal/vault"
)

// Options lets callers replace the process environment and streams.
type Options struct {
	Env    map[string]string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type app struct {
	opts Options

	configPath string
	username   string
	logLevel   string
	verbose    bool

	logger *slog.Logger
	vault  *vault.Vault
}

func NewRootCmd(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

func newRoot(opts Options) (*cobra.Command, *app) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "kinvault",
		Short: "Keep a family's documents, accounts and assets in one encrypted vault",
		Long: `kinvault stores family member profiles and the records attached to them
(documents, accounts, insurances and loans, lockers, properties) in a local
SQLite database. Identifying numbers and addresses are encrypted at rest.

Configuration is read from $KINVAULT_CONFIG or ~/.config/kinvault/config.toml
and KINVAULT_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVarP(&a.username, "user", "u", "", "acting user (default $KINVAULT_USER)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		a.userCmd(),
		a.memberCmd(),
		a.recordCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.archiveCmd(),
		a.doctorCmd(),
	)
	return root, a
}

func (a *app) lookupEnv(key string) (string, bool) {
	if a.opts.Env != nil {
		if v, ok := a.opts.Env[key]; ok {
			return v, true
		}
	}
	return os.LookupEnv(key)
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
		return nil
	}
	cfg, err := config.Load(config.LoadOptions{ConfigPath: a.configPath, Env: a.opts.Env})
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if a.logLevel != "" {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return fmt.Errorf("--log-level: %v: %w", err, kverrors.ErrValidation)
		}
		level = a.logLevel
	} else if !a.verbose && level == "info" {
		// Info lines only with --verbose.
		level = "warn"
	}
	a.logger = logging.Setup(level, a.opts.Stderr)
	a.logger.Debug("config loaded", "db_path", cfg.Database.Path, "s3_enabled", cfg.S3.Enabled())

	v, err := vault.Open(cfg, a.logger)
	if err != nil {
		return err
	}
	a.vault = v
	return nil
}

func (a *app) teardown() error {
	if a.vault == nil {
		return nil
	}
	err := a.vault.Close()
	a.vault = nil
	return err
}

// identity resolves the acting user and returns a context carrying it.
func (a *app) identity(ctx context.Context) (context.Context, error) {
	name := strings.TrimSpace(a.username)
	if name == "" {
		name, _ = a.lookupEnv("KINVAULT_USER")
		name = strings.TrimSpace(name)
	}
	if name == "" {
		return ctx, fmt.Errorf("no user given; pass --user or set KINVAULT_USER: %w", kverrors.ErrNotAuthorized)
	}

	u, err := a.vault.Users.GetByUsername(ctx, name)
	if err != nil {
		return ctx, err
	}
	if u == nil {
		return ctx, fmt.Errorf("unknown user %q: %w", name, kverrors.ErrNotAuthorized)
	}
	return auth.WithAuth(ctx, auth.AuthContext{UserID: u.ID, Username: u.Username}), nil
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, opts Options, args []string) int {
	root, a := newRoot(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.teardown(); err == nil {
		err = cerr
	}
	if err == nil {
		return 0
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	fmt.Fprintln(stderr, describeError(err))
	return exitCode(err)
}

func describeError(err error) string {
	mark := ui.Failed()
	switch {
	case errors.Is(err, kverrors.ErrNotAuthorized):
		return fmt.Sprintf("%s Not authorized: %v", mark, err)
	case errors.Is(err, kverrors.ErrNotFound):
		return fmt.Sprintf("%s Not found: %v", mark, err)
	case errors.Is(err, kverrors.ErrValidation), errors.Is(err, config.ErrInvalidConfig):
		return fmt.Sprintf("%s Invalid input: %v", mark, err)
	case errors.Is(err, kverrors.ErrNotConfigured):
		return fmt.Sprintf("%s Remote storage is not configured; set KINVAULT_S3_BUCKET and credentials", mark)
	}
	return fmt.Sprintf("%s %v", mark, err)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, kverrors.ErrValidation), errors.Is(err, config.ErrInvalidConfig):
		return 2
	case errors.Is(err, kverrors.ErrNotAuthorized):
		return 3
	case errors.Is(err, kverrors.ErrNotFound):
		return 4
	}
	return 1
}
