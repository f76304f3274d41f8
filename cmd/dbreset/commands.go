package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/config"
	"github.com/tordrt/dbreset/internal/db"
	"github.com/tordrt/dbreset/internal/formatter"
	"github.com/tordrt/dbreset/internal/schema"
)

// resetOptions holds options for the reset command.
type resetOptions struct {
	Yes       bool
	SkipReset bool
	DryRun    bool
	Format    string
}

func newResetCommand(a *app) *cobra.Command {
	opts := &resetOptions{}
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and re-apply the schema script",
		Long: `Drop every base table of the configured database, then execute the schema
script statement by statement in one transaction.

This destroys all data in the database. On a terminal dbreset asks for
confirmation; elsewhere --yes is required.

PostgreSQL and SQLite roll back a failed script completely. MySQL commits
each DDL statement on its own, so statements before the failing one stay.`,
		Example: `  # Reset using .env and sql/schema.sql
  dbreset reset

  # Non-interactive, different script
  dbreset reset --yes --schema-file db/init.sql

  # Show what would be dropped
  dbreset reset --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd, a, opts)
		},
	}

	cmd.Flags().String("schema-file", "", "Schema script to apply (default: sql/schema.sql)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&opts.SkipReset, "skip-reset", false, "Apply the script without dropping tables first")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "List tables and statements without changing anything")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text or markdown")

	return cmd
}

func runReset(cmd *cobra.Command, a *app, opts *resetOptions) error {
	out, err := formatter.New(opts.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// Surface configuration problems before asking anything.
	a.cfg.ApplyDefaults()
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if _, err := schema.Load(a.cfg.SchemaFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &config.Error{Err: err}
		}
		return err
	}

	if !opts.Yes && !opts.DryRun && !opts.SkipReset {
		msg := fmt.Sprintf("This will DROP ALL TABLES in %s database %q at %s.", a.cfg.Engine, a.cfg.Database, a.cfg.Address())
		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), msg)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	ctx, cancel := a.runContext(cmd)
	defer cancel()

	res, err := dbreset.Run(ctx, a.cfg, &dbreset.Options{
		Logger:    a.logger,
		SkipReset: opts.SkipReset,
		DryRun:    opts.DryRun,
	})
	if err != nil {
		return err
	}

	if opts.DryRun {
		if err := out.FormatStatements(res.Statements); err != nil {
			return err
		}
	}
	return out.FormatRun(res)
}

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg.ApplyDefaults()
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd)
			defer cancel()

			return db.WithSession(ctx, db.Open, a.cfg, a.logger, func(sess db.Session) error {
				info, err := db.Probe(ctx, sess, sess.Dialect())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s %s at %s (database: %s)\n",
					info.Engine, info.Version, a.cfg.Address(), info.Database)
				if info.Driver != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Driver: %s\n", info.Driver)
				}
				return nil
			})
		},
	}
}

func newCreateDBCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "createdb",
		Short: "Create the configured database if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg.ApplyDefaults()
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd)
			defer cancel()

			created, err := db.CreateDatabase(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			if created {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database %s created\n", a.cfg.Database)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database %s already exists\n", a.cfg.Database)
			}
			return nil
		},
	}
}

// queryOptions holds options for the query command.
type queryOptions struct {
	Format    string
	OutputDir string
}

func newQueryCommand(a *app) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Run the statements of a SQL file and print their results",
		Long: `Split a SQL file on ";" and run each statement against the configured
database, printing every result set as a table. Statements run outside a
transaction; the first failure stops the run.`,
		Example: `  # Spot-check the data after a reset
  dbreset query sql/test_queries.sql

  # One markdown file per statement
  dbreset query sql/test_queries.sql -f markdown -d out/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, a, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text or markdown")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "d", "", "Write one file per statement to this directory")

	return cmd
}

func runQuery(cmd *cobra.Command, a *app, opts *queryOptions, path string) error {
	script, err := schema.Load(path)
	if err != nil {
		return err
	}

	a.cfg.ApplyDefaults()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := a.runContext(cmd)
	defer cancel()

	var results []formatter.QueryResult
	err = db.WithSession(ctx, db.Open, a.cfg, a.logger, func(sess db.Session) error {
		for i, stmt := range script.Statements() {
			a.logger.Debug("running query", "index", i+1)
			rs, err := sess.Query(ctx, stmt)
			if err != nil {
				return fmt.Errorf("statement %d failed (%s): %w", i+1, schema.Abbreviate(stmt, 60), err)
			}
			results = append(results, formatter.QueryResult{Index: i + 1, Statement: stmt, Set: rs})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.OutputDir != "" {
		if err := formatter.NewMultiFileFormatter(opts.OutputDir, opts.Format).FormatResults(results); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d results to %s\n", len(results), opts.OutputDir)
		return nil
	}

	out, err := formatter.New(opts.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return out.FormatResults(results)
}

func newSplitCommand(_ *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Print the statements a SQL file splits into",
		Long: `Print the statements dbreset would execute for a SQL file.

Splitting is naive: every ";" ends a statement, including one inside a string
literal, comment, or procedure body. Use this to check a script before a reset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := schema.Load(args[0])
			if err != nil {
				return err
			}
			out, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return out.FormatStatements(script.Statements())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or markdown")

	return cmd
}
