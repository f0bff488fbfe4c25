// Package sqlite stores the progress document in a local SQLite database
// (pure-Go modernc driver). Writes are compare-and-set on a revision column
// and every saved revision is recorded in progress_history.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/pkg/digest"
	"github.com/hampton/progress-tracker/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds SQLite store configuration.
type Config struct {
	// Path is the database file; ":memory:" works for tests.
	Path string

	// Key identifies the progress document (one row per key).
	Key string

	// BusyTimeout is passed to SQLite as busy_timeout.
	BusyTimeout time.Duration

	// HistoryLimit caps progress_history rows per key; 0 keeps everything.
	HistoryLimit int

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultConfig returns defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		Key:          "hampton_progress",
		BusyTimeout:  2 * time.Second,
		HistoryLimit: 500,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store implements progress.VersionedRepository and progress.HistoryRepository.
type Store struct {
	db      *sql.DB
	key     string
	limit   int
	retrier *retry.Retrier
	logger  *slog.Logger
}

var (
	_ progress.VersionedRepository = (*Store)(nil)
	_ progress.HistoryRepository   = (*Store)(nil)
)

// Open opens (creating if needed) the database and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, persistenceError("Open", "database path is required", nil)
	}
	if cfg.Key == "" {
		cfg.Key = DefaultConfig(cfg.Path).Key
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	dsn := cfg.Path
	if cfg.BusyTimeout > 0 {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += fmt.Sprintf("%s_pragma=busy_timeout(%d)", sep, cfg.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, persistenceError("Open", "open database", err)
	}
	// One writer keeps SQLite's locking simple; the service serializes anyway.
	db.SetMaxOpenConns(1)

	if err := NewMigrator(db).Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, persistenceError("Open", "migrate", err)
	}

	return &Store{
		db:      db,
		key:     cfg.Key,
		limit:   cfg.HistoryLimit,
		retrier: retry.StoreRetrier(isBusy),
		logger:  cfg.Logger,
	}, nil
}

// Load implements progress.Repository.
func (s *Store) Load(ctx context.Context) (*progress.State, error) {
	st, _, err := s.LoadVersion(ctx)
	return st, err
}

// LoadVersion returns the document and its revision.
func (s *Store) LoadVersion(ctx context.Context) (*progress.State, int64, error) {
	var (
		doc string
		rev int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document, revision FROM progress_state WHERE key = ?`, s.key,
	).Scan(&doc, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, shared.ErrStateNotFound
	}
	if err != nil {
		return nil, 0, persistenceError("Load", "query state", err)
	}

	var st progress.State
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, 0, persistenceError("Load", "decode document", err)
	}
	return &st, rev, nil
}

// Revision returns the stored revision without decoding the document.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT revision FROM progress_state WHERE key = ?`, s.key,
	).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, persistenceError("Revision", "query revision", err)
	}
	return rev, nil
}

// Save overwrites the document regardless of its revision.
func (s *Store) Save(ctx context.Context, st *progress.State) error {
	_, err := s.write(ctx, st, -1)
	return err
}

// SaveIfVersion writes only if the stored revision equals expected (0 for
// "no document yet"). An unchanged document keeps its revision and is not
// rewritten.
func (s *Store) SaveIfVersion(ctx context.Context, st *progress.State, expected int64) (int64, error) {
	return s.write(ctx, st, expected)
}

func (s *Store) write(ctx context.Context, st *progress.State, expected int64) (int64, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return 0, persistenceError("Save", "encode document", err)
	}
	sum := digest.Sum(doc)

	var rev int64
	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		var txErr error
		rev, txErr = s.writeTx(ctx, st, doc, sum, expected)
		return txErr
	})
	if err != nil {
		if errors.Is(err, shared.ErrStaleRevision) {
			return 0, persistenceError("SaveIfVersion", "revision moved", err)
		}
		return 0, persistenceError("Save", "write document", err)
	}
	return rev, nil
}

func (s *Store) writeTx(ctx context.Context, st *progress.State, doc []byte, sum string, expected int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		current    int64
		currentSum string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT revision, digest FROM progress_state WHERE key = ?`, s.key,
	).Scan(&current, &currentSum)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return 0, err
	}

	if expected >= 0 && current != expected {
		return 0, shared.ErrStaleRevision
	}
	if current > 0 && currentSum == sum {
		s.logger.Debug("progress unchanged, skipping write", "revision", current)
		return current, nil
	}

	next := current + 1
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress_state (key, user_id, revision, digest, document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			user_id = excluded.user_id,
			revision = excluded.revision,
			digest = excluded.digest,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		s.key, st.UserID, next, sum, string(doc), now,
	)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO progress_history (key, revision, xp, level, digest, saved_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.key, next, st.XP, st.Level, sum, now,
	)
	if err != nil {
		return 0, err
	}

	if s.limit > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM progress_history WHERE key = ? AND revision <= ?`, s.key, next-int64(s.limit))
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// Delete removes the document and its history.
func (s *Store) Delete(ctx context.Context) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress_state WHERE key = ?`, s.key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM progress_history WHERE key = ?`, s.key)
		return err
	})
	if err != nil {
		return persistenceError("Delete", "delete document", err)
	}
	return nil
}

// History returns the most recent saves, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]progress.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT revision, xp, level, digest, saved_at
		FROM progress_history
		WHERE key = ?
		ORDER BY revision DESC
		LIMIT ?`, s.key, limit)
	if err != nil {
		return nil, persistenceError("History", "query history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []progress.Snapshot
	for rows.Next() {
		var (
			snap    progress.Snapshot
			savedAt string
		)
		if err := rows.Scan(&snap.Revision, &snap.XP, &snap.Level, &snap.Digest, &savedAt); err != nil {
			return nil, persistenceError("History", "scan history", err)
		}
		snap.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("History", "read history", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the handle for migrations tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func persistenceError(op, message string, err error) error {
	return shared.WrapError("sqlite", op, shared.ErrPersistence, message, err)
}

// isBusy reports SQLite lock contention, which is worth retrying.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
