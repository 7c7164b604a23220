package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/capture"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/slide"
)

// TestFullWorkflow exercises the slide lifecycle end to end:
// author → capture on two devices → results → replay → export → delete → import.
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	collab := &Collaborator{DB: database, Cfg: cfg}

	// 1. Author a square slide with a stamp target and a text question.
	res := canvas.Square
	stamp := slide.NewElement("target", slide.KindStamp, res)
	stamp.Place(25, 25)
	question := slide.NewElement("q1", slide.KindText, res)
	_, err := SaveSlide(ctx, database, cfg, SaveSlideInput{Slide: slide.Slide{
		ID:       "quiz",
		Format:   canvas.FormatSquare,
		Elements: []slide.Element{stamp, question},
	}})
	require.NoError(t, err)

	// 2. Two participants stamp the same canvas point on different screens.
	devices := []struct {
		alias string
		w, h  float64
	}{
		{"ana", 400, 800}, // portrait phone: stage 400x400 at y=200
		{"ben", 1600, 900},
	}
	for _, d := range devices {
		sess, err := capture.Start(ctx, collab, "quiz", capture.Options{Alias: d.alias, ViewportWidth: d.w, ViewportHeight: d.h})
		require.NoError(t, err)
		require.Equal(t, capture.ToolStamp, sess.Tool())

		px, py := sess.Stage().ToScreen(270, 270)
		sess.PointerDown(px, py)
		sess.PointerUp()
		sess.SetText("q1", "respuesta de "+d.alias)

		_, err = sess.Submit(ctx, collab)
		require.NoError(t, err)
	}

	// 3. Results group by participant, with canvas-identical stamps.
	results, err := ResultsByParticipant(ctx, database, ResultsInput{SlideIDs: []string{"quiz"}})
	require.NoError(t, err)
	require.Len(t, results.Participants, 2)
	for _, p := range results.Participants {
		rec := p.Latest["quiz"]
		require.Equal(t, canvas.Square, rec.Canvas)
		require.Len(t, rec.Stamps, 1)
		require.InDelta(t, 270, rec.Stamps[0].X, 1e-6)
		require.InDelta(t, 270, rec.Stamps[0].Y, 1e-6)
	}

	// 4. The format is now locked.
	_, err = SaveSlide(ctx, database, cfg, SaveSlideInput{Slide: slide.Slide{ID: "quiz", Format: canvas.FormatWide}})
	require.True(t, errors.Is(err, errors.ErrFormatLocked))

	// 5. Replay on a third viewport.
	anaRec := results.Participants[0].Latest["quiz"]
	rep, err := ReplayRecord(ctx, database, cfg, ReplayInput{RecordID: anaRec.ID, Width: 300, Height: 300})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Stats.Stamps)

	// 6. Export, delete, import back.
	path := filepath.Join(t.TempDir(), "quiz.jsonl")
	exp, err := ExportRecords(ctx, database, cfg, ExportInput{Path: path, SlideIDs: []string{"quiz"}})
	require.NoError(t, err)
	require.Equal(t, 2, exp.Count)

	del, err := DeleteRecords(ctx, database, DeleteRecordsInput{SlideIDs: []string{"quiz"}})
	require.NoError(t, err)
	require.Equal(t, int64(2), del.Deleted)

	imp, err := ImportRecords(ctx, database, cfg, ImportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, imp.Imported)

	latest, err := LatestRecord(ctx, database, LatestRecordInput{SlideID: "quiz", Alias: "ben"})
	require.NoError(t, err)
	require.Equal(t, "respuesta de ben", latest.TextAnswers["q1"])
}
