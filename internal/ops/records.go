package ops

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/db"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/record"
)

// MaxAliasLength caps participant alias length.
const MaxAliasLength = 64

// SubmitRecordInput contains parameters for the SubmitRecord operation.
type SubmitRecordInput struct {
	Record record.Record
}

// SubmitRecordOutput contains the result of the SubmitRecord operation.
type SubmitRecordOutput struct {
	ID               string `json:"id"`
	SlideID          string `json:"slide_id"`
	ParticipantAlias string `json:"participant_alias"`
	Points           int    `json:"points"`
	Dropped          int    `json:"dropped"`
	CreatedAt        int64  `json:"created_at"`
}

// SubmitRecord validates and stores a new interaction record.
//
// Malformed entries are dropped, as are text answers and drag results for
// elements no longer on the slide. Records without a canvas get the slide's.
// An id and created_at are assigned when missing. Records are write-once; a
// duplicate id is a CONFLICT.
func SubmitRecord(ctx context.Context, database *sql.DB, cfg *config.Config, input SubmitRecordInput) (*SubmitRecordOutput, error) {
	rec := *input.Record.Clone()

	slideID, err := requireID("slide_id", rec.SlideID)
	if err != nil {
		return nil, err
	}
	rec.SlideID = slideID

	alias := strings.TrimSpace(rec.ParticipantAlias)
	if alias == "" {
		return nil, errors.NewInvalidRequest("participant_alias is required")
	}
	if len(alias) > MaxAliasLength {
		return nil, errors.NewInvalidRequest("participant_alias is too long")
	}
	rec.ParticipantAlias = alias

	if rec.ID != "" {
		if rec.ID, err = requireID("id", rec.ID); err != nil {
			return nil, err
		}
	} else {
		rec.ID = newULID()
	}

	sl, err := LoadSlide(ctx, database, cfg, LoadSlideInput{ID: slideID})
	if err != nil {
		return nil, err
	}

	dropped := rec.Sanitize() + rec.Restrict(sl)
	if dropped > 0 {
		logging.Logger().Debug("dropped malformed record entries", "slide", slideID, "alias", alias, "dropped", dropped)
	}

	if cfg != nil && cfg.RecordMaxPoints > 0 {
		if n := rec.PointCount(); n > cfg.RecordMaxPoints {
			return nil, errors.NewRecordTooLarge(cfg.RecordMaxPoints, n)
		}
	}

	if !rec.Canvas.Valid() {
		rec.Canvas = sl.Canvas()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	if err := db.InsertRecord(ctx, database, &rec); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("record already exists: " + rec.ID)
		}
		return nil, err
	}

	return &SubmitRecordOutput{
		ID:               rec.ID,
		SlideID:          rec.SlideID,
		ParticipantAlias: rec.ParticipantAlias,
		Points:           rec.PointCount(),
		Dropped:          dropped,
		CreatedAt:        rec.CreatedAt,
	}, nil
}

// GetRecordInput contains parameters for the GetRecord operation.
type GetRecordInput struct {
	ID string
}

// GetRecord retrieves one interaction record by id.
func GetRecord(ctx context.Context, database *sql.DB, input GetRecordInput) (*record.Record, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetRecord(ctx, database, id)
}

// ListRecordsInput contains parameters for the ListRecords operation.
type ListRecordsInput struct {
	SlideIDs []string // empty lists records of every slide
	Alias    string
	Limit    int // default: 20, max: 100
	Offset   int
}

// ListRecordsOutput contains the result of the ListRecords operation.
type ListRecordsOutput struct {
	Items      []*record.Record `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

// ListRecords returns records newest first.
func ListRecords(ctx context.Context, database *sql.DB, input ListRecordsInput) (*ListRecordsOutput, error) {
	slideIDs, err := cleanSlideIDs(input.SlideIDs)
	if err != nil {
		return nil, err
	}
	limit := normalizeLimit(input.Limit)
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	filter := db.RecordFilter{
		SlideIDs: slideIDs,
		Alias:    strings.TrimSpace(input.Alias),
		Limit:    limit,
		Offset:   offset,
	}
	items, err := db.ListRecords(ctx, database, filter)
	if err != nil {
		return nil, err
	}
	total, err := db.CountRecords(ctx, database, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*record.Record{}
	}

	return &ListRecordsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

// LatestRecordInput contains parameters for the LatestRecord operation.
type LatestRecordInput struct {
	SlideID string
	Alias   string
}

// LatestRecord returns the newest record of one participant on one slide.
func LatestRecord(ctx context.Context, database *sql.DB, input LatestRecordInput) (*record.Record, error) {
	slideID, err := requireID("slide_id", input.SlideID)
	if err != nil {
		return nil, err
	}
	alias := strings.TrimSpace(input.Alias)
	if alias == "" {
		return nil, errors.NewInvalidRequest("participant_alias is required")
	}
	return db.LatestRecord(ctx, database, slideID, alias)
}

// ResultsInput contains parameters for the ResultsByParticipant operation.
type ResultsInput struct {
	SlideIDs []string // required
}

// ParticipantResults is one participant's latest record on each slide.
type ParticipantResults struct {
	Alias       string                    `json:"alias"`
	Latest      map[string]*record.Record `json:"latest"` // by slide id
	Submissions int                       `json:"submissions"`
}

// ResultsOutput contains the result of the ResultsByParticipant operation.
type ResultsOutput struct {
	SlideIDs     []string             `json:"slide_ids"`
	Participants []ParticipantResults `json:"participants"`
}

// ResultsByParticipant groups the records of a set of slides by participant
// alias, sorted by alias. Only the newest record per (slide, alias) is kept;
// Submissions counts every record of the participant.
func ResultsByParticipant(ctx context.Context, database *sql.DB, input ResultsInput) (*ResultsOutput, error) {
	slideIDs, err := cleanSlideIDs(input.SlideIDs)
	if err != nil {
		return nil, err
	}
	if len(slideIDs) == 0 {
		return nil, errors.NewInvalidRequest("slide_ids is required")
	}

	recs, err := db.ListRecords(ctx, database, db.RecordFilter{SlideIDs: slideIDs})
	if err != nil {
		return nil, err
	}

	byAlias := make(map[string]*ParticipantResults)
	for _, r := range recs {
		p, ok := byAlias[r.ParticipantAlias]
		if !ok {
			p = &ParticipantResults{Alias: r.ParticipantAlias, Latest: map[string]*record.Record{}}
			byAlias[r.ParticipantAlias] = p
		}
		p.Submissions++
		// newest first, so the first record seen per slide wins
		if _, seen := p.Latest[r.SlideID]; !seen {
			p.Latest[r.SlideID] = r
		}
	}

	out := &ResultsOutput{SlideIDs: slideIDs, Participants: make([]ParticipantResults, 0, len(byAlias))}
	for _, p := range byAlias {
		out.Participants = append(out.Participants, *p)
	}
	sort.Slice(out.Participants, func(i, j int) bool {
		return out.Participants[i].Alias < out.Participants[j].Alias
	})
	return out, nil
}

// DeleteRecordsInput contains parameters for the DeleteRecords operation.
type DeleteRecordsInput struct {
	SlideIDs []string // required
}

// DeleteRecordsOutput contains the result of the DeleteRecords operation.
type DeleteRecordsOutput struct {
	Deleted int64 `json:"deleted"`
}

// DeleteRecords removes every record of the given slides.
func DeleteRecords(ctx context.Context, database *sql.DB, input DeleteRecordsInput) (*DeleteRecordsOutput, error) {
	slideIDs, err := cleanSlideIDs(input.SlideIDs)
	if err != nil {
		return nil, err
	}
	if len(slideIDs) == 0 {
		return nil, errors.NewInvalidRequest("slide_ids is required")
	}
	n, err := db.DeleteRecords(ctx, database, slideIDs)
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("records deleted", "slides", len(slideIDs), "deleted", n)
	return &DeleteRecordsOutput{Deleted: n}, nil
}
