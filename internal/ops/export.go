package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/db"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
)

// ExportSchemaVersion is written in the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the ExportRecords operation.
type ExportInput struct {
	Path     string   // optional, default: ~/.lamina/exports/<slide|all>-<timestamp>.jsonl
	SlideIDs []string // optional filter
}

// ExportOutput contains the result of the ExportRecords operation.
type ExportOutput struct {
	Path       string         `json:"path"`
	Count      int            `json:"count"`
	PerSlide   map[string]int `json:"per_slide"`
	ExportedAt int64          `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	LaminaExport  bool     `json:"_lamina_export"`
	SchemaVersion string   `json:"schema_version"`
	ExportedAt    int64    `json:"exported_at"`
	SlideIDs      []string `json:"slide_ids,omitempty"`
}

// ExportRecords writes interaction records to a JSONL file: a header line,
// then one record per line, oldest first. An existing file at the path is
// only replaced once the new export is complete.
func ExportRecords(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	slideIDs, err := cleanSlideIDs(input.SlideIDs)
	if err != nil {
		return nil, err
	}

	path := input.Path
	if path == "" {
		if path, err = defaultExportPath(slideIDs, now); err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("export")
	}
	// newest first from the store
	recs, err := db.ListRecords(ctx, database, db.RecordFilter{SlideIDs: slideIDs})
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{Path: path, PerSlide: map[string]int{}, ExportedAt: now.Unix()}
	err = writeFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if err := enc.Encode(ExportHeader{
			LaminaExport:  true,
			SchemaVersion: ExportSchemaVersion,
			ExportedAt:    out.ExportedAt,
			SlideIDs:      slideIDs,
		}); err != nil {
			return errors.NewInternal(err)
		}
		for i := len(recs) - 1; i >= 0; i-- {
			if ctx.Err() != nil {
				return errors.NewCancelled("export")
			}
			if err := enc.Encode(recs[i]); err != nil {
				return errors.NewInternal(err)
			}
			out.Count++
			out.PerSlide[recs[i].SlideID]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger().Info("records exported", "path", path, "count", out.Count, "slides", len(out.PerSlide))
	return out, nil
}

// writeFileAtomic writes through a buffered temp file next to path and
// renames it into place after fn succeeds. The temp file is removed on any
// failure, so an existing file at path survives.
func writeFileAtomic(path string, fn func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return errors.NewInternal(fmt.Errorf("temp file name: %w", err))
	}
	tmp := path + "." + hex.EncodeToString(suffix) + ".tmp"
	f, err := openFileNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("create export file: %w", err))
	}
	defer func() {
		if f != nil {
			f.Close()
		}
		if err != nil {
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := f.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Windows cannot rename an open file.
	closeErr := f.Close()
	f = nil
	if closeErr != nil {
		return errors.NewInternal(fmt.Errorf("close export file: %w", closeErr))
	}

	// os.Rename would follow a symlinked destination
	if info, lerr := os.Lstat(path); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tmp, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("finalize export: %w", err))
	}
	return nil
}

// defaultExportPath is ~/.lamina/exports/<slide>-<timestamp>.jsonl for a
// single slide and all-<timestamp>.jsonl otherwise.
func defaultExportPath(slideIDs []string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := "all"
	if len(slideIDs) == 1 {
		name = SanitizeForFilename(slideIDs[0])
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))), nil
}
