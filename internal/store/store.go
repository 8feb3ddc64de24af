package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photo-discovery/internal/logging"
	"photo-discovery/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// Validation is one persisted verdict.
type Validation struct {
	Path      string
	ModTime   time.Time
	Size      int64
	IsValid   bool
	CheckedAt time.Time
}

// Store is a SQLite-backed validation archive. Safe for concurrent
// use; database/sql handles connection pooling.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the store at dbPath. The parent
// directory must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	start := time.Now()

	// WAL mode with a busy timeout to avoid "database is locked"
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close store after ping failure: %v", closeErr)
		}
		metrics.StoreOperationsTotal.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close store after schema failure: %v", closeErr)
		}
		metrics.StoreOperationsTotal.WithLabelValues("open", "error").Inc()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	metrics.StoreOperationsTotal.WithLabelValues("open", "success").Inc()
	metrics.StoreOperationDuration.WithLabelValues("open").Observe(time.Since(start).Seconds())
	logging.Info("Validation store opened at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS validations (
		path TEXT NOT NULL,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		is_valid INTEGER NOT NULL,
		checked_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (path, mod_time)
	);

	CREATE INDEX IF NOT EXISTS idx_validations_checked_at ON validations(checked_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveValidation records one verdict, replacing any prior verdict for
// the same (path, mtime).
func (s *Store) SaveValidation(ctx context.Context, v Validation) error {
	start := time.Now()

	checkedAt := v.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO validations (path, mod_time, size, is_valid, checked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.Path, v.ModTime.UnixNano(), v.Size, v.IsValid, checkedAt.Unix())
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("save_validation", "error").Inc()
		return fmt.Errorf("failed to save validation for %s: %w", v.Path, err)
	}

	metrics.StoreOperationsTotal.WithLabelValues("save_validation", "success").Inc()
	metrics.StoreOperationDuration.WithLabelValues("save_validation").Observe(time.Since(start).Seconds())
	return nil
}

// SaveValidations records a batch of verdicts in one transaction.
func (s *Store) SaveValidations(ctx context.Context, validations []Validation) error {
	if len(validations) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("flush", "error").Inc()
		return fmt.Errorf("failed to begin flush transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO validations (path, mod_time, size, is_valid, checked_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		metrics.StoreOperationsTotal.WithLabelValues("flush", "error").Inc()
		return fmt.Errorf("failed to prepare flush statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, v := range validations {
		checkedAt := now
		if !v.CheckedAt.IsZero() {
			checkedAt = v.CheckedAt.Unix()
		}
		if _, err := stmt.ExecContext(ctx, v.Path, v.ModTime.UnixNano(), v.Size, v.IsValid, checkedAt); err != nil {
			_ = tx.Rollback()
			metrics.StoreOperationsTotal.WithLabelValues("flush", "error").Inc()
			return fmt.Errorf("failed to flush validation for %s: %w", v.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("flush", "error").Inc()
		return fmt.Errorf("failed to commit flush: %w", err)
	}

	metrics.StoreOperationsTotal.WithLabelValues("flush", "success").Inc()
	metrics.StoreOperationDuration.WithLabelValues("flush").Observe(time.Since(start).Seconds())
	logging.Debug("Flushed %d validations to store", len(validations))
	return nil
}

// LoadValidations returns every verdict checked within maxAge. Zero
// maxAge loads everything.
func (s *Store) LoadValidations(ctx context.Context, maxAge time.Duration) ([]Validation, error) {
	start := time.Now()

	query := `SELECT path, mod_time, size, is_valid, checked_at FROM validations`
	args := []interface{}{}
	if maxAge > 0 {
		query += ` WHERE checked_at >= ?`
		args = append(args, time.Now().Add(-maxAge).Unix())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("load_validations", "error").Inc()
		return nil, fmt.Errorf("failed to load validations: %w", err)
	}
	defer rows.Close()

	var validations []Validation
	for rows.Next() {
		var v Validation
		var modTime, checkedAt int64
		if err := rows.Scan(&v.Path, &modTime, &v.Size, &v.IsValid, &checkedAt); err != nil {
			metrics.StoreOperationsTotal.WithLabelValues("load_validations", "error").Inc()
			return nil, fmt.Errorf("failed to scan validation row: %w", err)
		}
		v.ModTime = time.Unix(0, modTime)
		v.CheckedAt = time.Unix(checkedAt, 0)
		validations = append(validations, v)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("load_validations", "error").Inc()
		return nil, fmt.Errorf("failed to iterate validations: %w", err)
	}

	metrics.StoreOperationsTotal.WithLabelValues("load_validations", "success").Inc()
	metrics.StoreOperationDuration.WithLabelValues("load_validations").Observe(time.Since(start).Seconds())
	return validations, nil
}

// Prune deletes verdicts older than maxAge and returns the count
// removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM validations WHERE checked_at < ?`,
		time.Now().Add(-maxAge).Unix())
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("prune", "error").Inc()
		return 0, fmt.Errorf("failed to prune store: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		removed = 0
	}

	metrics.StoreOperationsTotal.WithLabelValues("prune", "success").Inc()
	metrics.StoreOperationDuration.WithLabelValues("prune").Observe(time.Since(start).Seconds())
	if removed > 0 {
		logging.Debug("Pruned %d stale validations", removed)
	}
	return removed, nil
}

// Count returns the number of persisted verdicts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count validations: %w", err)
	}
	return n, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	logging.Debug("Validation store closed")
	return nil
}
