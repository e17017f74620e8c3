package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"popcorn/internal/config"
	"popcorn/internal/faults"
)

// Store manages catalog persistence backed by SQLite. Reads go through the
// Store directly; every mutation of field items and contributions runs on a
// Tx so propose and verify stay single atomic units.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Tx is a transaction handle exposing the mutating catalog operations. Only
// the contribution engine drives these; nothing else may flip item status or
// lock flags.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside one database transaction. Transient SQLite busy
// errors and stale-write failures roll the transaction back and retry it
// from scratch. Stale writes get staleAttempts tries before surfacing as
// a conflict; busy errors get busyRetryAttempts tries before surfacing
// as-is. Each kind counts its own retries.
func (s *Store) WithTx(ctx context.Context, staleAttempts int, fn func(*Tx) error) error {
	ctx = ensureContext(ctx)
	if staleAttempts <= 0 {
		staleAttempts = 1
	}

	staleTries, busyTries := 0, 0
	for {
		lastErr := s.runTx(ctx, fn)
		if lastErr == nil {
			return nil
		}
		var attempt int
		switch {
		case isSQLiteBusy(lastErr):
			busyTries++
			if busyTries >= busyRetryAttempts {
				return lastErr
			}
			attempt = busyTries
		case faults.Retryable(lastErr):
			staleTries++
			if staleTries >= staleAttempts {
				return faults.Wrap(faults.ErrConflict, "catalog", "tx", "retries exhausted", lastErr)
			}
			attempt = staleTries
		default:
			return lastErr
		}
		select {
		case <-time.After(retryBackoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func retryBackoff(attempt int) time.Duration {
	backoff := busyRetryInitialBackoff << (attempt - 1)
	if backoff > busyRetryMaxBackoff || backoff <= 0 {
		backoff = busyRetryMaxBackoff
	}
	return backoff
}

func (s *Store) runTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	handle := &Tx{tx: tx}
	if err := fn(handle); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// querier abstracts *sql.DB and *sql.Tx so read paths can be shared.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
