package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lamina/internal/capture"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
)

func TestCollaborator_CaptureSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))
	collab := &Collaborator{DB: database, Cfg: config.DefaultConfig()}

	sess, err := capture.Start(ctx, collab, "s1", capture.Options{Alias: "ana", ViewportWidth: 800, ViewportHeight: 600})
	require.NoError(t, err)
	require.Equal(t, capture.ToolDraw, sess.Tool())

	// stage is 800x450 at y=75; scale 0.4166..
	sess.PointerDown(100, 75+100*450.0/1080)
	sess.PointerMove(300, 75+100*450.0/1080)
	sess.PointerUp()
	sess.SetText("q1", "hola")

	rec, err := sess.Submit(ctx, collab)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.NotZero(t, rec.CreatedAt)

	recs, err := collab.LoadInteractionRecords(ctx, []string{"s1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	got := recs[0]
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, "ana", got.ParticipantAlias)
	require.Len(t, got.Strokes, 1)
	require.Len(t, got.Strokes[0].Points, 2)
	require.InDelta(t, 240, got.Strokes[0].Points[0].X, 1e-6)
	require.InDelta(t, 100, got.Strokes[0].Points[0].Y, 1e-6)
	require.Equal(t, "hola", got.TextAnswers["q1"])
	require.Len(t, got.DragFinal, 1)
}

func TestCollaborator_SaveFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))
	collab := &Collaborator{DB: database}

	sess, err := capture.Start(ctx, collab, "s1", capture.Options{ViewportWidth: 800, ViewportHeight: 600})
	require.NoError(t, err)
	sess.PointerDown(400, 300)
	sess.PointerUp()

	// no alias: the store rejects the record
	_, err = sess.Submit(ctx, collab)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	require.Len(t, sess.Strokes(), 1)
}

func TestCollaborator_StartUnknownSlide(t *testing.T) {
	collab := &Collaborator{DB: newTestDB(t)}
	_, err := capture.Start(context.Background(), collab, "missing", capture.Options{})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCollaborator_LoadInteractionRecordsEmpty(t *testing.T) {
	collab := &Collaborator{DB: newTestDB(t)}
	recs, err := collab.LoadInteractionRecords(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}
