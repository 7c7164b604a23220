package ops

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/color"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/replay"
)

// MaxViewportSide caps replay viewport dimensions in pixels.
const MaxViewportSide = 8192

// ReplayInput contains parameters for the ReplayRecord operation.
type ReplayInput struct {
	RecordID string
	Width    int // viewport pixels; 0 means the record's canvas width
	Height   int // viewport pixels; 0 means the record's canvas height

	Background image.Image // optional, drawn under the ink
	Matte      color.Color // optional, fills outside the stage
}

// ReplayOutput contains the result of the ReplayRecord operation.
type ReplayOutput struct {
	RecordID string       `json:"record_id"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Stage    canvas.Stage `json:"stage"`
	Stats    replay.Stats `json:"stats"`
	PNG      []byte       `json:"-"`
}

// ReplayRecord renders a stored record as a PNG for one viewport, letterboxed
// exactly as the capture viewport fitter would lay it out.
func ReplayRecord(ctx context.Context, database *sql.DB, cfg *config.Config, input ReplayInput) (*ReplayOutput, error) {
	rec, res, err := loadForReplay(ctx, database, cfg, input.RecordID)
	if err != nil {
		return nil, err
	}

	w, h := input.Width, input.Height
	if w == 0 && h == 0 {
		w, h = int(res.Width), int(res.Height)
	}
	if err := checkViewport(float64(w), float64(h)); err != nil {
		return nil, err
	}

	img, stage, stats, err := replay.Display(rec, res, w, h, replay.DisplayOptions{
		Style:      ReplayStyle(cfg),
		Background: input.Background,
		Matte:      input.Matte,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if stats.Skipped() > 0 {
		logging.Logger().Debug("replay skipped malformed entries", "record", rec.ID, "skipped", stats.Skipped())
	}

	var buf bytes.Buffer
	if err := replay.WritePNG(&buf, img); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ReplayOutput{
		RecordID: rec.ID,
		Width:    w,
		Height:   h,
		Stage:    stage,
		Stats:    stats,
		PNG:      buf.Bytes(),
	}, nil
}

// OverlayInput contains parameters for the OverlayRecord operation.
type OverlayInput struct {
	RecordID string
	Width    float64 // viewport pixels
	Height   float64
}

// OverlayRecord maps a stored record onto a viewport as screen-space
// geometry for clients that draw results themselves.
func OverlayRecord(ctx context.Context, database *sql.DB, cfg *config.Config, input OverlayInput) (*replay.Overlay, error) {
	if err := checkViewport(input.Width, input.Height); err != nil {
		return nil, err
	}
	rec, res, err := loadForReplay(ctx, database, cfg, input.RecordID)
	if err != nil {
		return nil, err
	}
	ov := replay.NewOverlay(rec, res, input.Width, input.Height, ReplayStyle(cfg))
	return &ov, nil
}

// loadForReplay fetches a record and the canvas its coordinates are in.
// Records stored without a canvas fall back to their slide's, or to the
// default canvas when the slide is gone.
func loadForReplay(ctx context.Context, database *sql.DB, cfg *config.Config, recordID string) (*record.Record, canvas.Resolution, error) {
	rec, err := GetRecord(ctx, database, GetRecordInput{ID: recordID})
	if err != nil {
		return nil, canvas.Resolution{}, err
	}
	if rec.Canvas.Valid() {
		return rec, rec.Canvas, nil
	}

	res := canvas.ResolutionFor("")
	sl, err := LoadSlide(ctx, database, cfg, LoadSlideInput{ID: rec.SlideID})
	switch {
	case err == nil:
		res = sl.Canvas()
	case errors.Is(err, errors.ErrNotFound):
		logging.Logger().Warn("replaying record of missing slide on default canvas", "record", rec.ID, "slide", rec.SlideID)
	default:
		return nil, canvas.Resolution{}, err
	}
	return rec, res, nil
}

func checkViewport(w, h float64) error {
	if w <= 0 || h <= 0 || w > MaxViewportSide || h > MaxViewportSide {
		return errors.NewInvalidRequest(fmt.Sprintf("viewport must be between 1 and %d pixels per side", MaxViewportSide))
	}
	return nil
}
