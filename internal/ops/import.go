package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/db"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError  ImportMode = "error"  // fail on any collision or bad line (atomic)
	ImportModeSkip   ImportMode = "skip"   // keep the stored record, skip the imported one
	ImportModeRename ImportMode = "rename" // store the imported record under a new id
)

// maxImportLine bounds one JSONL line; a record at the default point cap
// is well under it.
const maxImportLine = 64 << 20

// ImportInput contains parameters for the ImportRecords operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the ImportRecords operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Legacy   int           `json:"legacy"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importLine is one decoded record with its line number.
type importLine struct {
	line   int
	rec    *record.Record
	legacy bool
}

// ImportRecords reads interaction records from a JSONL file written by
// ExportRecords. Rows in the historical interactions shape (alias,
// drawings, icon_positions) are converted against their slide, which must
// already exist. Every imported record must reference a stored slide.
func ImportRecords(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeSkip, ImportModeRename:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	slides := newSlideCache(ctx, database, cfg)
	lines, problems := parseImportFile(bufio.NewScanner(file), slides)

	out := &ImportOutput{Errors: problems}
	if input.Mode == ImportModeError && len(problems) > 0 {
		return out, nil
	}
	out.Skipped = len(problems)

	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, l := range lines {
			select {
			case <-ctx.Done():
				return errors.NewCancelled("import")
			default:
			}

			problem, err := importOne(ctx, tx, cfg, l, input.Mode)
			if err != nil {
				return err
			}
			if problem != nil {
				if input.Mode == ImportModeError {
					out.Errors = append(out.Errors, *problem)
					return errAbortImport
				}
				out.Errors = append(out.Errors, *problem)
				out.Skipped++
				continue
			}
			out.Imported++
			if l.legacy {
				out.Legacy++
			}
		}
		return nil
	})
	if err == errAbortImport {
		out.Imported, out.Legacy = 0, 0
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	logging.Logger().Info("records imported", "path", input.Path, "imported", out.Imported, "skipped", out.Skipped)
	return out, nil
}

// errAbortImport rolls back an error-mode import on its first collision.
var errAbortImport = errors.NewConflict("import aborted")

// importOne stores one record. A non-nil ImportError reports a per-record
// problem; a non-nil error aborts the import.
func importOne(ctx context.Context, tx *sql.Tx, cfg *config.Config, l importLine, mode ImportMode) (*ImportError, error) {
	rec := l.rec
	if cfg != nil && cfg.RecordMaxPoints > 0 && rec.PointCount() > cfg.RecordMaxPoints {
		return &ImportError{Line: l.line, ID: rec.ID, Code: string(errors.ErrRecordTooLarge),
			Message: fmt.Sprintf("record has %d points; max is %d", rec.PointCount(), cfg.RecordMaxPoints)}, nil
	}

	_, err := db.GetRecord(ctx, tx, rec.ID)
	switch {
	case err == nil:
		switch mode {
		case ImportModeRename:
			rec.ID = newULID()
		default:
			return &ImportError{Line: l.line, ID: rec.ID, Code: "ID_COLLISION",
				Message: fmt.Sprintf("record with id %q already exists", rec.ID)}, nil
		}
	case !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	if err := db.InsertRecord(ctx, tx, rec); err != nil {
		if err == db.ErrUniqueConstraint {
			return &ImportError{Line: l.line, ID: rec.ID, Code: "ID_COLLISION",
				Message: fmt.Sprintf("record with id %q appears twice", rec.ID)}, nil
		}
		return nil, err
	}
	return nil, nil
}

// parseImportFile decodes every line. Problems are reported per line and
// never stop parsing.
func parseImportFile(scanner *bufio.Scanner, slides *slideCache) ([]importLine, []ImportError) {
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)

	var (
		lines    []importLine
		problems []ImportError
		n        int
	)
	for scanner.Scan() {
		n++
		data := scanner.Bytes()
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		var header ExportHeader
		if err := json.Unmarshal(data, &header); err != nil {
			problems = append(problems, ImportError{Line: n, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if header.LaminaExport {
			continue
		}

		l, problem := decodeImportLine(n, data, slides)
		if problem != nil {
			problems = append(problems, *problem)
			continue
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		problems = append(problems, ImportError{Line: n + 1, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return lines, problems
}

func decodeImportLine(n int, data []byte, slides *slideCache) (importLine, *ImportError) {
	legacy := record.IsLegacy(data)

	var probe struct {
		ID      string `json:"id"`
		SlideID string `json:"slide_id"`
	}
	_ = json.Unmarshal(data, &probe)
	if probe.ID == "" {
		return importLine{}, &ImportError{Line: n, Code: "INVALID_RECORD", Message: "missing id field"}
	}
	if probe.SlideID == "" {
		return importLine{}, &ImportError{Line: n, ID: probe.ID, Code: "INVALID_RECORD", Message: "missing slide_id field"}
	}

	sl, err := slides.get(probe.SlideID)
	if err != nil {
		code := "SLIDE_NOT_FOUND"
		if !errors.Is(err, errors.ErrNotFound) {
			code = "SLIDE_ERROR"
		}
		return importLine{}, &ImportError{Line: n, ID: probe.ID, Code: code, Message: err.Error()}
	}

	var rec *record.Record
	if legacy {
		rec, err = record.DecodeLegacy(data, sl)
	} else {
		rec = &record.Record{}
		err = json.Unmarshal(data, rec)
	}
	if err != nil {
		return importLine{}, &ImportError{Line: n, ID: probe.ID, Code: "INVALID_RECORD", Message: err.Error()}
	}

	rec.Sanitize()
	rec.Restrict(sl)
	if strings.TrimSpace(rec.ParticipantAlias) == "" {
		return importLine{}, &ImportError{Line: n, ID: rec.ID, Code: "INVALID_RECORD", Message: "missing participant alias"}
	}
	if !rec.Canvas.Valid() {
		rec.Canvas = sl.Canvas()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	return importLine{line: n, rec: rec, legacy: legacy}, nil
}

// slideCache loads each referenced slide once per import.
type slideCache struct {
	ctx      context.Context
	database *sql.DB
	cfg      *config.Config
	slides   map[string]*slide.Slide
	errs     map[string]error
}

func newSlideCache(ctx context.Context, database *sql.DB, cfg *config.Config) *slideCache {
	return &slideCache{
		ctx:      ctx,
		database: database,
		cfg:      cfg,
		slides:   map[string]*slide.Slide{},
		errs:     map[string]error{},
	}
}

func (c *slideCache) get(id string) (*slide.Slide, error) {
	if s, ok := c.slides[id]; ok {
		return s, nil
	}
	if err, ok := c.errs[id]; ok {
		return nil, err
	}
	s, err := LoadSlide(c.ctx, c.database, c.cfg, LoadSlideInput{ID: id})
	if err != nil {
		c.errs[id] = err
		return nil, err
	}
	c.slides[id] = s
	return s, nil
}
