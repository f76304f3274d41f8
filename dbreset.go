// Package dbreset wipes a development database and rebuilds it from a
// schema script.
//
// A run connects with the configured credentials, drops every base table of
// the target schema with foreign-key checks suspended, then executes the
// script's statements in order inside a transaction. The first failing
// statement rolls the transaction back and fails the run.
//
// dbreset supports MySQL, PostgreSQL, and SQLite. PostgreSQL and SQLite roll
// back DDL; MySQL commits each DDL statement implicitly, so a failed apply
// there leaves the statements before the failure in place.
//
// # Quick Start
//
//	cfg := &config.Config{
//		Engine:     "mysql",
//		Host:       "localhost",
//		Port:       3306,
//		Database:   "water_dashboard_nsw_local",
//		User:       "root",
//		Password:   os.Getenv("LOCAL_DB_PASSWORD"),
//		SchemaFile: "sql/schema.sql",
//	}
//	res, err := dbreset.Run(ctx, cfg, nil)
//
// Run never exits the process. Callers map the returned error to an exit
// status; errors.As finds the *ConfigurationError, *ConnectionError,
// *ResetError or *ApplyError behind it.
package dbreset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tordrt/dbreset/internal/config"
	"github.com/tordrt/dbreset/internal/db"
	"github.com/tordrt/dbreset/internal/reset"
	"github.com/tordrt/dbreset/internal/schema"
)

type (
	// ConfigurationError reports missing or invalid configuration. No
	// connection has been attempted when it is returned.
	ConfigurationError = config.Error
	// ConnectionError reports that the database could not be reached.
	ConnectionError = db.ConnectionError
	// ResetError reports a failure enumerating or dropping tables.
	ResetError = reset.ResetError
	// ApplyError reports the first schema statement that failed.
	ApplyError = reset.ApplyError
)

// Phase is a state of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseResetting
	PhaseApplying
	PhaseCommitted
	PhaseRolledBack
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseResetting:
		return "resetting"
	case PhaseApplying:
		return "applying"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled back"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PhaseError is the single error a failed run returns. Phase is the phase
// that was active when the run failed.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Options configures a run. The zero value runs a full reset and apply
// against a real connection and discards logs.
type Options struct {
	// Logger receives progress and per-table warnings.
	Logger *slog.Logger

	// Open acquires the session. Defaults to db.Open; tests substitute it.
	Open db.Opener

	// SkipReset applies the script without dropping existing tables.
	SkipReset bool

	// DryRun connects, lists the tables that would be dropped, and splits
	// the script without changing anything.
	DryRun bool
}

// Result describes a run. It is returned for failed runs too, with the
// counters of the phases that completed.
type Result struct {
	RunID             string
	Engine            string
	Database          string
	Tables            []string
	Statements        []string
	TablesDropped     int
	StatementsApplied int
	Phase             Phase
	Duration          time.Duration
}

// Run resets the configured database and applies cfg.SchemaFile to it.
//
// Configuration is validated and the script is read before any connection
// is made. cfg is not modified; defaults are applied to a copy. The session
// is released on every path. On failure the returned
// error is a *PhaseError. Result.Phase is PhaseRolledBack when the reset or
// apply transaction failed and PhaseFailed when no transaction was opened.
func Run(ctx context.Context, cfg *config.Config, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	open := opts.Open
	if open == nil {
		open = db.Open
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Phase: PhaseIdle}
	logger = logger.With("run_id", res.RunID)

	fail := func(phase, terminal Phase, err error) (*Result, error) {
		res.Phase = terminal
		res.Duration = time.Since(start)
		logger.Error("run failed", "phase", phase.String(), "error", err)
		return res, &PhaseError{Phase: phase, Err: err}
	}

	if cfg == nil {
		return fail(PhaseIdle, PhaseFailed, &config.Error{Err: errors.New("no configuration")})
	}
	c := *cfg
	cfg = &c
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fail(PhaseIdle, PhaseFailed, err)
	}
	res.Engine = cfg.Engine
	res.Database = cfg.Database

	script, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = &config.Error{Err: err}
		}
		return fail(PhaseIdle, PhaseFailed, err)
	}
	res.Statements = script.Statements()
	logger.Info("schema loaded", "file", script.Path, "statements", len(res.Statements))

	res.Phase = PhaseConnecting
	logger.Info("connecting", "config", cfg)

	engine := reset.New(logger)
	phase := PhaseConnecting
	err = db.WithSession(ctx, open, cfg, logger, func(sess db.Session) error {
		if opts.DryRun {
			phase = PhaseResetting
			tables, err := engine.ListTables(ctx, sess, sess.Dialect())
			if err != nil {
				return &reset.ResetError{Err: err}
			}
			res.Tables = tables
			logger.Info("dry run, nothing changed", "tables", len(tables), "statements", len(res.Statements))
			return nil
		}

		if !opts.SkipReset {
			phase = PhaseResetting
			res.Phase = phase
			n, err := engine.ResetAll(ctx, sess)
			if err != nil {
				return err
			}
			res.TablesDropped = n
			logger.Info("reset complete", "tables_dropped", n)
		}

		phase = PhaseApplying
		res.Phase = phase
		n, err := engine.Apply(ctx, sess, res.Statements)
		if err != nil {
			return err
		}
		res.StatementsApplied = n
		return nil
	})
	if err != nil {
		// A dry run never opens a transaction.
		if phase == PhaseConnecting || opts.DryRun {
			return fail(phase, PhaseFailed, err)
		}
		return fail(phase, PhaseRolledBack, err)
	}

	res.Phase = PhaseCommitted
	res.Duration = time.Since(start)
	logger.Info("run complete",
		"tables_dropped", res.TablesDropped,
		"statements_applied", res.StatementsApplied,
		"duration", res.Duration)
	return res, nil
}
