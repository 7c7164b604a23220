package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/db"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/slide"
)

// MaxElements caps the number of elements on one slide.
const MaxElements = 500

// SaveSlideInput contains parameters for the SaveSlide operation.
type SaveSlideInput struct {
	Slide slide.Slide // ID optional: a new one is generated when empty
}

// SaveSlideOutput contains the result of the SaveSlide operation.
type SaveSlideOutput struct {
	ID        string `json:"id"`
	Format    string `json:"format"`
	Elements  int    `json:"elements"`
	Created   bool   `json:"created"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// SaveSlide creates a slide or replaces its definition.
//
// The slide is normalized before it is stored, so historical sizes are
// migrated once and every stored element is in canvas units. Elements
// without an id get one. Changing the format of a slide that already has
// interaction records is rejected with FORMAT_LOCKED: those records are
// expressed in the old canvas.
func SaveSlide(ctx context.Context, database *sql.DB, cfg *config.Config, input SaveSlideInput) (*SaveSlideOutput, error) {
	s := input.Slide
	if s.ID == "" {
		s.ID = newULID()
	}
	id, err := requireID("id", s.ID)
	if err != nil {
		return nil, err
	}
	s.ID = id
	if len(s.Elements) > MaxElements {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("slide has %d elements; max is %d", len(s.Elements), MaxElements))
	}
	s.Elements = append([]slide.Element(nil), s.Elements...)

	slide.Normalize(&s, legacyReference(cfg))

	seen := make(map[string]bool, len(s.Elements))
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.ID == "" {
			e.ID = newULID()
		}
		if seen[e.ID] {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("duplicate element id %q", e.ID))
		}
		seen[e.ID] = true
	}

	now := time.Now().Unix()
	s.CreatedAt = now
	s.UpdatedAt = now

	created := false
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		existing, err := db.GetSlide(ctx, tx, s.ID)
		switch {
		case errors.Is(err, errors.ErrNotFound):
			created = true
		case err != nil:
			return err
		default:
			slide.Normalize(existing, legacyReference(cfg))
			if existing.Format != s.Format {
				n, err := db.CountRecords(ctx, tx, db.RecordFilter{SlideIDs: []string{s.ID}})
				if err != nil {
					return err
				}
				if n > 0 {
					return errors.NewFormatLocked(s.ID, string(existing.Format), string(s.Format), n)
				}
			}
		}
		return db.UpsertSlide(ctx, tx, &s)
	})
	if err != nil {
		return nil, err
	}

	logging.Logger().Debug("slide saved", "slide", s.ID, "format", s.Format, "elements", len(s.Elements), "created", created)
	return &SaveSlideOutput{
		ID:        s.ID,
		Format:    string(s.Format),
		Elements:  len(s.Elements),
		Created:   created,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

// LoadSlideInput contains parameters for the LoadSlide operation.
type LoadSlideInput struct {
	ID string
}

// LoadSlide retrieves a slide, normalized to the current representation.
func LoadSlide(ctx context.Context, database *sql.DB, cfg *config.Config, input LoadSlideInput) (*slide.Slide, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	s, err := db.GetSlide(ctx, database, id)
	if err != nil {
		return nil, err
	}
	slide.Normalize(s, legacyReference(cfg))
	return s, nil
}

// ListSlidesInput contains parameters for the ListSlides operation.
type ListSlidesInput struct {
	ProjectID string // empty lists every slide
}

// ListSlidesOutput contains the result of the ListSlides operation.
type ListSlidesOutput struct {
	Items []*slide.Slide `json:"items"`
}

// ListSlides returns slides in presentation order.
func ListSlides(ctx context.Context, database *sql.DB, cfg *config.Config, input ListSlidesInput) (*ListSlidesOutput, error) {
	slides, err := db.ListSlides(ctx, database, input.ProjectID)
	if err != nil {
		return nil, err
	}
	ref := legacyReference(cfg)
	for _, s := range slides {
		slide.Normalize(s, ref)
	}
	if slides == nil {
		slides = []*slide.Slide{}
	}
	return &ListSlidesOutput{Items: slides}, nil
}
