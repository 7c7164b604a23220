package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/record"
)

func TestCaptureEvents_SavesCanvasCoordinates(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	saveSlide(t, database, quizSlide("s1"))

	// 960x540 viewport: the wide canvas at half scale, no letterbox.
	out, err := CaptureEvents(ctx, database, cfg, CaptureInput{
		SlideID:          "s1",
		ParticipantAlias: " ana ",
		ViewportWidth:    960,
		ViewportHeight:   540,
		Events: []CaptureEvent{
			{Type: "tool", Tool: "draw"},
			{Type: "color", Color: "#3b82f6"},
			{Type: "down", X: 50, Y: 50},
			{Type: "move", X: 100, Y: 50},
			{Type: "up"},
			{Type: "tool", Tool: "stamp"},
			{Type: "down", X: 480, Y: 270},
			{Type: "up"},
			{Type: "text", ElementID: "q1", Value: "hola"},
			{Type: "wiggle"},
			{Type: "tool", Tool: "laser"},
		},
	})
	require.NoError(t, err)
	require.True(t, out.Saved)
	require.Equal(t, 2, out.Ignored)
	require.NotEmpty(t, out.Record.ID)

	stored, err := GetRecord(ctx, database, GetRecordInput{ID: out.Record.ID})
	require.NoError(t, err)
	require.Equal(t, "ana", stored.ParticipantAlias)
	require.Len(t, stored.Strokes, 1)
	require.Equal(t, "#3b82f6", stored.Strokes[0].Color)
	require.Equal(t, []record.Point{{X: 100, Y: 100}, {X: 200, Y: 100}}, stored.Strokes[0].Points)
	require.Equal(t, []record.Stamp{{X: 960, Y: 540}}, stored.Stamps)
	require.Equal(t, "hola", stored.TextAnswers["q1"])
}

func TestCaptureEvents_ResizeMidSession(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))

	out, err := CaptureEvents(ctx, database, config.DefaultConfig(), CaptureInput{
		SlideID:          "s1",
		ParticipantAlias: "ben",
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		Events: []CaptureEvent{
			{Type: "tool", Tool: "stamp"},
			{Type: "down", X: 960, Y: 540},
			{Type: "up"},
			{Type: "resize", ViewportWidth: 480, ViewportHeight: 270},
			{Type: "down", X: 240, Y: 135},
			{Type: "up"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []record.Stamp{{X: 960, Y: 540}, {X: 960, Y: 540}}, out.Record.Stamps)
}

func TestCaptureEvents_PreviewIsNotSaved(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	saveSlide(t, database, quizSlide("s1"))

	out, err := CaptureEvents(ctx, database, config.DefaultConfig(), CaptureInput{
		SlideID:        "s1",
		ViewportWidth:  800,
		ViewportHeight: 600,
		Preview:        true,
		Events:         []CaptureEvent{{Type: "down", X: 10, Y: 100}, {Type: "up"}},
	})
	require.NoError(t, err)
	require.False(t, out.Saved)
	require.Len(t, out.Record.Strokes, 1)

	list, err := ListRecords(ctx, database, ListRecordsInput{SlideIDs: []string{"s1"}})
	require.NoError(t, err)
	require.Empty(t, list.Items)
}

func TestCaptureEvents_Rejects(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	saveSlide(t, database, quizSlide("s1"))

	_, err := CaptureEvents(ctx, database, cfg, CaptureInput{SlideID: "s1", ViewportWidth: 800, ViewportHeight: 600})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "missing alias: %v", err)

	_, err = CaptureEvents(ctx, database, cfg, CaptureInput{SlideID: "s1", ParticipantAlias: "ana"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "missing viewport: %v", err)

	_, err = CaptureEvents(ctx, database, cfg, CaptureInput{SlideID: "nope", ParticipantAlias: "ana", ViewportWidth: 800, ViewportHeight: 600})
	require.True(t, errors.Is(err, errors.ErrNotFound), "missing slide: %v", err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = CaptureEvents(cancelled, database, cfg, CaptureInput{
		SlideID: "s1", ParticipantAlias: "ana", ViewportWidth: 800, ViewportHeight: 600,
		Events: []CaptureEvent{{Type: "down"}},
	})
	require.True(t, errors.Is(err, errors.ErrCancelled), "cancelled: %v", err)
}
