package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/lamina/internal/capture"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/db"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

// Collaborator is the persistence side of a capture session: it loads
// slides, saves interaction records and loads them back for results.
type Collaborator struct {
	DB  *sql.DB
	Cfg *config.Config
}

var (
	_ capture.SlideLoader = (*Collaborator)(nil)
	_ capture.RecordSaver = (*Collaborator)(nil)
)

// LoadSlide returns the normalized slide.
func (c *Collaborator) LoadSlide(ctx context.Context, slideID string) (*slide.Slide, error) {
	return LoadSlide(ctx, c.DB, c.Cfg, LoadSlideInput{ID: slideID})
}

// SaveInteractionRecord stores rec and fills in the id and created_at it
// was stored with.
func (c *Collaborator) SaveInteractionRecord(ctx context.Context, rec *record.Record) error {
	out, err := SubmitRecord(ctx, c.DB, c.Cfg, SubmitRecordInput{Record: *rec})
	if err != nil {
		return err
	}
	rec.ID = out.ID
	rec.CreatedAt = out.CreatedAt
	return nil
}

// LoadInteractionRecords returns every record of the given slides, newest
// first.
func (c *Collaborator) LoadInteractionRecords(ctx context.Context, slideIDs []string) ([]*record.Record, error) {
	ids, err := cleanSlideIDs(slideIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*record.Record{}, nil
	}
	recs, err := db.ListRecords(ctx, c.DB, db.RecordFilter{SlideIDs: ids})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	return recs, nil
}
