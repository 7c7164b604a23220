package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/slide"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.LaminaError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// UpsertSlide inserts a slide or replaces the stored definition of an
// existing one. created_at is preserved on update.
func UpsertSlide(ctx context.Context, q Querier, s *slide.Slide) error {
	elements := s.Elements
	if elements == nil {
		elements = []slide.Element{}
	}
	data, err := json.Marshal(elements)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO slides (
			id, project_id, format, background_url, audio_url,
			elements_json, order_index, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			format = excluded.format,
			background_url = excluded.background_url,
			audio_url = excluded.audio_url,
			elements_json = excluded.elements_json,
			order_index = excluded.order_index,
			updated_at = excluded.updated_at
		RETURNING created_at
	`

	err = q.QueryRowContext(ctx, query,
		s.ID, s.ProjectID, string(s.Format), toNullString(s.BackgroundURL), toNullString(s.AudioURL),
		string(data), s.OrderIndex, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

const slideColumns = `id, project_id, format, background_url, audio_url,
	elements_json, order_index, created_at, updated_at`

// GetSlide retrieves a slide by id. The slide is returned as stored;
// callers normalize it.
func GetSlide(ctx context.Context, q Querier, id string) (*slide.Slide, error) {
	row := q.QueryRowContext(ctx, `SELECT `+slideColumns+` FROM slides WHERE id = ?`, id)
	s, err := scanSlide(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("slide", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSlides returns the slides of a project in presentation order.
// An empty projectID lists every slide.
func ListSlides(ctx context.Context, q Querier, projectID string) ([]*slide.Slide, error) {
	query := `SELECT ` + slideColumns + ` FROM slides`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY project_id, order_index, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var slides []*slide.Slide
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		slides = append(slides, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return slides, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSlide(row scanner) (*slide.Slide, error) {
	var (
		s            slide.Slide
		format       string
		background   sql.NullString
		audio        sql.NullString
		elementsJSON string
	)
	err := row.Scan(
		&s.ID, &s.ProjectID, &format, &background, &audio,
		&elementsJSON, &s.OrderIndex, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Format = canvas.Format(format)
	s.BackgroundURL = background.String
	s.AudioURL = audio.String
	if err := json.Unmarshal([]byte(elementsJSON), &s.Elements); err != nil {
		return nil, err
	}
	return &s, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
