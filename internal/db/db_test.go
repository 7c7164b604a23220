package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/slide"
)

func TestInit_Layout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "home", ".lamina")

	db, err := Init(base)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(base, "lamina.db")); err != nil {
		t.Errorf("lamina.db missing: %v", err)
	}
	if info, err := os.Stat(filepath.Join(base, "exports")); err != nil || !info.IsDir() {
		t.Errorf("exports dir missing: %v", err)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %s, want wal", mode)
	}
}

func TestInit_Schema(t *testing.T) {
	db := openTestDB(t)

	objects := map[string]string{
		"slides":                         "table",
		"interactions":                   "table",
		"idx_slides_project_order":       "index",
		"idx_interactions_slide_created": "index",
		"idx_interactions_slide_alias":   "index",
	}
	for name, typ := range objects {
		var got string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = ? AND name = ?", typ, name).Scan(&got)
		if err != nil {
			t.Errorf("%s %s not found: %v", typ, name, err)
		}
	}
}

func TestInit_ReopenKeepsDataAndVersion(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db1, err := Init(dir)
	if err != nil {
		t.Fatalf("first Init: %v", err)
	}
	s := &slide.Slide{ID: "s1", ProjectID: "p", Format: canvas.FormatSquare}
	if err := UpsertSlide(ctx, db1, s); err != nil {
		t.Fatalf("UpsertSlide: %v", err)
	}
	db1.Close()

	db2, err := Init(dir)
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	defer db2.Close()

	version, err := GetUserVersion(db2)
	if err != nil {
		t.Fatalf("GetUserVersion: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
	got, err := GetSlide(ctx, db2, "s1")
	if err != nil {
		t.Fatalf("GetSlide after reopen: %v", err)
	}
	if got.Format != canvas.FormatSquare {
		t.Errorf("format = %q, want square", got.Format)
	}
}

func TestUserVersion_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := SetUserVersion(db, 42); err != nil {
		t.Fatalf("SetUserVersion: %v", err)
	}
	v, err := GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion: %v", err)
	}
	if v != 42 {
		t.Errorf("user_version = %d, want 42", v)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := stderrors.New("boom")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := UpsertSlide(ctx, tx, &slide.Slide{ID: "s1", Format: canvas.FormatWide}); err != nil {
			return err
		}
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	if _, err := GetSlide(ctx, db, "s1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("slide survived rollback: %v", err)
	}

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		return UpsertSlide(ctx, tx, &slide.Slide{ID: "s2", Format: canvas.FormatWide})
	})
	if err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}
	if _, err := GetSlide(ctx, db, "s2"); err != nil {
		t.Errorf("committed slide missing: %v", err)
	}
}

func TestConfigurePool(t *testing.T) {
	db := openTestDB(t)

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 3})
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}
}
