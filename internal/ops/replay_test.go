package ops

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/record"
)

func TestReplayRecord_PNGAtViewport(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))
	out := submit(t, database, sampleRecord("s1", "ana"))

	rep, err := ReplayRecord(ctx, database, nil, ReplayInput{RecordID: out.ID, Width: 800, Height: 600})
	require.NoError(t, err)
	require.Equal(t, canvas.Stage{X: 0, Y: 75, Width: 800, Height: 450, Canvas: canvas.Wide}, rep.Stage)
	require.Equal(t, 1, rep.Stats.Strokes)
	require.Equal(t, 1, rep.Stats.Stamps)

	img, err := png.Decode(bytes.NewReader(rep.PNG))
	require.NoError(t, err)
	require.Equal(t, 800, img.Bounds().Dx())
	require.Equal(t, 600, img.Bounds().Dy())

	// the stamp sits at the canvas center, which is the viewport center
	_, _, _, a := img.At(400, 300).RGBA()
	require.NotZero(t, a)
	// letterbox bands stay transparent
	_, _, _, a = img.At(400, 10).RGBA()
	require.Zero(t, a)
}

func TestReplayRecord_DefaultsToCanvasSize(t *testing.T) {
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))
	out := submit(t, database, sampleRecord("s1", "ana"))

	rep, err := ReplayRecord(context.Background(), database, nil, ReplayInput{RecordID: out.ID})
	require.NoError(t, err)
	require.Equal(t, 1920, rep.Width)
	require.Equal(t, 1080, rep.Height)
}

func TestReplayRecord_Errors(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))
	out := submit(t, database, sampleRecord("s1", "ana"))

	_, err := ReplayRecord(ctx, database, nil, ReplayInput{RecordID: "missing", Width: 10, Height: 10})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = ReplayRecord(ctx, database, nil, ReplayInput{RecordID: out.ID, Width: MaxViewportSide + 1, Height: 10})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = ReplayRecord(ctx, database, nil, ReplayInput{RecordID: out.ID, Width: 100})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestOverlayRecord_MatchesCaptureMapping(t *testing.T) {
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))
	out := submit(t, database, sampleRecord("s1", "ana"))

	ov, err := OverlayRecord(context.Background(), database, nil, OverlayInput{RecordID: out.ID, Width: 1200, Height: 675})
	require.NoError(t, err)

	// 1200x675 is exactly 16:9, scale 0.625, no letterbox
	require.Equal(t, 0.0, ov.Stage.Y)
	require.Equal(t, []record.Point{{X: 62.5, Y: 62.5}, {X: 187.5, Y: 62.5}}, ov.Strokes[0].Points)
	require.Equal(t, 5.0, ov.Strokes[0].Width)
	require.Equal(t, 600.0, ov.Stamps[0].X)
	require.Equal(t, 337.5, ov.Stamps[0].Y)
	require.Equal(t, 18.75, ov.Stamps[0].Radius)
}

func TestLoadForReplay_FallsBackToSlideCanvas(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	s := quizSlide("sq")
	s.Format = canvas.FormatSquare
	saveSlide(t, database, s)
	out := submit(t, database, sampleRecord("sq", "ana"))

	_, res, err := loadForReplay(ctx, database, nil, out.ID)
	require.NoError(t, err)
	require.Equal(t, canvas.Square, res)
}
