package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/record"
)

// InsertRecord stores a new interaction record. Records are write-once:
// there is no update path, and a duplicate id yields ErrUniqueConstraint.
func InsertRecord(ctx context.Context, q Querier, r *record.Record) error {
	strokes, err := marshalOr(r.Strokes, "[]")
	if err != nil {
		return errors.NewInternal(err)
	}
	stamps, err := marshalOr(r.Stamps, "[]")
	if err != nil {
		return errors.NewInternal(err)
	}
	text, err := marshalOr(r.TextAnswers, "{}")
	if err != nil {
		return errors.NewInternal(err)
	}
	drags, err := marshalOr(r.DragFinal, "[]")
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO interactions (
			id, slide_id, alias, canvas_width, canvas_height,
			strokes_json, stamps_json, text_json, drag_json,
			point_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		r.ID, r.SlideID, r.ParticipantAlias, r.Canvas.Width, r.Canvas.Height,
		strokes, stamps, text, drags,
		r.PointCount(), r.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

const recordColumns = `id, slide_id, alias, canvas_width, canvas_height,
	strokes_json, stamps_json, text_json, drag_json, created_at`

// GetRecord retrieves one interaction record by id.
func GetRecord(ctx context.Context, q Querier, id string) (*record.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM interactions WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("record", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// RecordFilter selects interaction records.
type RecordFilter struct {
	SlideIDs []string // empty means all slides
	Alias    string   // empty means every participant
	Limit    int      // 0 means no limit
	Offset   int
}

// ListRecords returns records newest first.
func ListRecords(ctx context.Context, q Querier, f RecordFilter) ([]*record.Record, error) {
	where, args := f.where()
	query := `SELECT ` + recordColumns + ` FROM interactions` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// CountRecords counts records matching f (Limit and Offset are ignored).
func CountRecords(ctx context.Context, q Querier, f RecordFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`+where, args...).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// LatestRecord returns the newest record of one participant on one slide.
func LatestRecord(ctx context.Context, q Querier, slideID, alias string) (*record.Record, error) {
	recs, err := ListRecords(ctx, q, RecordFilter{SlideIDs: []string{slideID}, Alias: alias, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.NewNotFound("record", slideID+"/"+alias)
	}
	return recs[0], nil
}

// DeleteRecords removes every record of the given slides and returns how
// many were removed.
func DeleteRecords(ctx context.Context, q Querier, slideIDs []string) (int64, error) {
	if len(slideIDs) == 0 {
		return 0, nil
	}
	where, args := RecordFilter{SlideIDs: slideIDs}.where()
	result, err := q.ExecContext(ctx, `DELETE FROM interactions`+where, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func (f RecordFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(f.SlideIDs) > 0 {
		clauses = append(clauses, `slide_id IN (`+placeholders(len(f.SlideIDs))+`)`)
		for _, id := range f.SlideIDs {
			args = append(args, id)
		}
	}
	if f.Alias != "" {
		clauses = append(clauses, `alias = ?`)
		args = append(args, f.Alias)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanRecord(row scanner) (*record.Record, error) {
	var (
		r                            record.Record
		strokes, stamps, text, drags string
	)
	err := row.Scan(
		&r.ID, &r.SlideID, &r.ParticipantAlias, &r.Canvas.Width, &r.Canvas.Height,
		&strokes, &stamps, &text, &drags, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(strokes), &r.Strokes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stamps), &r.Stamps); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(text), &r.TextAnswers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(drags), &r.DragFinal); err != nil {
		return nil, err
	}
	return &r, nil
}

// marshalOr encodes v, using empty for nil slices and maps.
func marshalOr(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}
