package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/db"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func fptr(v float64) *float64 { return &v }

// quizSlide has one element of every kind.
func quizSlide(id string) slide.Slide {
	return slide.Slide{
		ID:        id,
		ProjectID: "p1",
		Format:    canvas.FormatWide,
		Elements: []slide.Element{
			{ID: "q1", Kind: slide.KindText, X: 25, Y: 20, Width: fptr(640), Height: fptr(320), SizeUnit: slide.SizeUnitCanvas},
			{ID: "target", Kind: slide.KindStamp, X: 70, Y: 60},
			{ID: "d1", Kind: slide.KindDrag, X: 50, Y: 50, ImageScale: 100},
			{ID: "ink", Kind: slide.KindDraw, X: 50, Y: 50},
		},
	}
}

func saveSlide(t *testing.T, database *sql.DB, s slide.Slide) {
	t.Helper()
	_, err := SaveSlide(context.Background(), database, config.DefaultConfig(), SaveSlideInput{Slide: s})
	require.NoError(t, err)
}

func sampleRecord(slideID, alias string) record.Record {
	return record.Record{
		SlideID:          slideID,
		ParticipantAlias: alias,
		Strokes: []record.Stroke{
			{Color: "#ef4444", Width: 8, Points: []record.Point{{X: 100, Y: 100}, {X: 300, Y: 100}}},
		},
		Stamps:      []record.Stamp{{X: 960, Y: 540}},
		TextAnswers: map[string]string{"q1": "hola"},
		DragFinal:   []record.DragFinal{{ElementID: "d1", X: 400, Y: 300}},
	}
}

func submit(t *testing.T, database *sql.DB, rec record.Record) *SubmitRecordOutput {
	t.Helper()
	out, err := SubmitRecord(context.Background(), database, config.DefaultConfig(), SubmitRecordInput{Record: rec})
	require.NoError(t, err)
	return out
}
