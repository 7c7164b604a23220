package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/lamina/internal/capture"
	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/record"
)

// MaxCaptureEvents caps one event log.
const MaxCaptureEvents = 250000

// CaptureEvent is one participant input in a recorded event log. Pointer
// positions are device pixels of the viewport the log was recorded on.
type CaptureEvent struct {
	Type string `json:"type"` // down, move, up, leave, resize, tool, color, width, text, undo, clear

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// resize
	ViewportWidth  float64 `json:"viewport_width,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`

	Tool      string  `json:"tool,omitempty"`
	Color     string  `json:"color,omitempty"`
	Width     float64 `json:"width,omitempty"`
	ElementID string  `json:"element_id,omitempty"`
	Value     string  `json:"value,omitempty"`
}

// CaptureInput contains parameters for the CaptureEvents operation.
type CaptureInput struct {
	SlideID          string         `json:"slide_id"`
	ParticipantAlias string         `json:"participant_alias"`
	ViewportWidth    float64        `json:"viewport_width"`
	ViewportHeight   float64        `json:"viewport_height"`
	Events           []CaptureEvent `json:"events"`
	Preview          bool           `json:"preview,omitempty"`
}

// CaptureOutput contains the result of the CaptureEvents operation.
type CaptureOutput struct {
	Record  *record.Record `json:"record"`
	Saved   bool           `json:"saved"`
	Ignored int            `json:"ignored"` // unknown events and refused tool switches
}

// CaptureEvents runs an event log through a capture session on the slide
// and submits the result, for clients that record raw input instead of
// assembling records themselves. Preview logs are assembled but not saved.
func CaptureEvents(ctx context.Context, database *sql.DB, cfg *config.Config, input CaptureInput) (*CaptureOutput, error) {
	if len(input.Events) > MaxCaptureEvents {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("event log has %d events; max is %d", len(input.Events), MaxCaptureEvents))
	}
	if err := checkViewport(input.ViewportWidth, input.ViewportHeight); err != nil {
		return nil, err
	}
	alias := strings.TrimSpace(input.ParticipantAlias)
	if alias == "" && !input.Preview {
		return nil, errors.NewInvalidRequest("participant_alias is required")
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("capture")
	}

	collab := &Collaborator{DB: database, Cfg: cfg}
	opts := capture.Options{
		Alias:           alias,
		ViewportWidth:   input.ViewportWidth,
		ViewportHeight:  input.ViewportHeight,
		Preview:         input.Preview,
		LegacyReference: legacyReference(cfg),
	}
	if cfg != nil {
		opts.Color, opts.Width = cfg.DefaultStrokeColor, cfg.DefaultStrokeWidth
	}
	sess, err := capture.Start(ctx, collab, input.SlideID, opts)
	if err != nil {
		return nil, err
	}

	ignored := 0
	for i, ev := range input.Events {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, errors.NewCancelled("capture")
		}
		if !applyEvent(sess, ev) {
			ignored++
		}
	}
	if ignored > 0 {
		logging.Logger().Debug("capture events ignored", "slide", input.SlideID, "ignored", ignored)
	}

	rec, err := sess.Submit(ctx, collab)
	if err != nil {
		return nil, err
	}
	return &CaptureOutput{Record: rec, Saved: !input.Preview, Ignored: ignored}, nil
}

// applyEvent feeds one event to the session. It reports false for events
// the session cannot take.
func applyEvent(sess *capture.Session, ev CaptureEvent) bool {
	switch ev.Type {
	case "down":
		sess.PointerDown(ev.X, ev.Y)
	case "move":
		sess.PointerMove(ev.X, ev.Y)
	case "up":
		sess.PointerUp()
	case "leave":
		sess.PointerLeave()
	case "resize":
		sess.Resize(ev.ViewportWidth, ev.ViewportHeight)
	case "tool":
		return sess.SetTool(capture.Tool(ev.Tool))
	case "color":
		sess.SetColor(ev.Color)
	case "width":
		sess.SetWidth(ev.Width)
	case "text":
		sess.SetText(ev.ElementID, ev.Value)
	case "undo":
		sess.Undo()
	case "clear":
		sess.Clear()
	default:
		return false
	}
	return true
}
