package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/config"
)

// Exit codes, one per error kind.
const (
	exitOK         = 0
	exitError      = 1
	exitConfig     = 2
	exitConnection = 3
	exitReset      = 4
	exitApply      = 5
)

// Version is set at build time.
var Version = "dev"

// app carries what the persistent flags resolve to.
type app struct {
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dbreset",
		Short: "Reset a development database and rebuild it from a schema script",
		Long: `dbreset drops every table of a development database and re-applies the
schema script (sql/schema.sql by default), so the database matches the script
exactly. It supports MySQL, PostgreSQL, and SQLite.

Connection settings come from dbreset.yaml, a .env file (LOCAL_DB_HOST,
LOCAL_DB_PORT, LOCAL_DB_NAME, LOCAL_DB_USER, LOCAL_DB_PASSWORD), DBRESET_*
environment variables and flags, in increasing order of precedence.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./dbreset.yaml)")
	pf.StringVar(&a.envFile, "env-file", "", "env file with LOCAL_DB_* variables (default: ./.env)")
	pf.String("engine", "", "Database engine: mysql, postgres, or sqlite (default: mysql)")
	pf.String("host", "", "Database host (default: localhost)")
	pf.Int("port", 0, "Database port (default: 3306 for mysql, 5432 for postgres)")
	pf.String("database", "", "Database name, or file path for sqlite")
	pf.String("user", "", "Database user")
	pf.String("password", "", "Database password (prefer LOCAL_DB_PASSWORD)")
	pf.String("pg-schema", "", "PostgreSQL schema to reset (default: public)")
	pf.Duration("timeout", 0, "Abort after this long, e.g. 2m (default: no timeout)")
	pf.BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.EngineMySQL, config.EnginePostgres, config.EngineSQLite}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newResetCommand(a))
	rootCmd.AddCommand(newPingCommand(a))
	rootCmd.AddCommand(newCreateDBCommand(a))
	rootCmd.AddCommand(newQueryCommand(a))
	rootCmd.AddCommand(newSplitCommand(a))

	return rootCmd
}

// load resolves configuration from the root's persistent flags and the
// command's own flags, and sets up logging on stderr.
func (a *app) load(cmd *cobra.Command) error {
	// cmd.Flags() includes the inherited persistent flags once parsed.
	cfg, err := config.Load(a.cfgFile, a.envFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	if cfg.Verbose {
		a.logger.Debug("configuration resolved", "config", cfg)
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// runContext returns the command context bounded by --timeout.
func (a *app) runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.cfg != nil && a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var (
		cfgErr   *dbreset.ConfigurationError
		connErr  *dbreset.ConnectionError
		resetErr *dbreset.ResetError
		applyErr *dbreset.ApplyError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &connErr):
		return exitConnection
	case errors.As(err, &resetErr):
		return exitReset
	case errors.As(err, &applyErr):
		return exitApply
	default:
		return exitError
	}
}
