package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	_ "modernc.org/sqlite"
)

// migrations[i] moves the schema from user_version i to i+1.
var migrations = []string{
	// 1: slides and write-once interaction records
	`
		CREATE TABLE IF NOT EXISTS slides (
		  id             TEXT PRIMARY KEY,
		  project_id     TEXT NOT NULL DEFAULT '',
		  format         TEXT NOT NULL,
		  background_url TEXT,
		  audio_url      TEXT,
		  elements_json  TEXT NOT NULL,
		  order_index    INTEGER NOT NULL DEFAULT 0,
		  created_at     INTEGER NOT NULL,
		  updated_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_slides_project_order
		ON slides(project_id, order_index);

		CREATE TABLE IF NOT EXISTS interactions (
		  id            TEXT PRIMARY KEY,
		  slide_id      TEXT NOT NULL,
		  alias         TEXT NOT NULL,
		  canvas_width  REAL NOT NULL,
		  canvas_height REAL NOT NULL,
		  strokes_json  TEXT NOT NULL,
		  stamps_json   TEXT NOT NULL,
		  text_json     TEXT NOT NULL,
		  drag_json     TEXT NOT NULL,
		  point_count   INTEGER NOT NULL,
		  created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_interactions_slide_created
		ON interactions(slide_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_interactions_slide_alias
		ON interactions(slide_id, alias, created_at DESC);
		`,
}

// CurrentSchemaVersion is the schema version after all migrations.
var CurrentSchemaVersion = len(migrations)

// pragmas apply to every pooled connection.
var pragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)"}

// Init opens baseDir/lamina.db, creating baseDir and its exports directory
// (both 0700), and migrates the schema. Tests pass t.TempDir() as baseDir.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := privateDir(dir); err != nil {
			return nil, err
		}
	}

	dbPath := filepath.Join(baseDir, "lamina.db")
	dsn := dbPath + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

func privateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	// MkdirAll leaves existing directories alone
	_ = os.Chmod(dir, 0700)
	return nil
}

// ConfigurePool applies pool limits from config. Zero values keep the
// database/sql defaults.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies every migration past the stored user_version. A database
// from a newer build is left alone.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := SetUserVersion(db, v+1); err != nil {
			return err
		}
	}
	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// Querier is the subset of *sql.DB and *sql.Tx the query functions use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction, committing if fn returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
