package record

import (
	"time"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/slide"
)

// DragState is the live position of one drag target in canvas units.
type DragState struct {
	ElementID string
	CurrentX  float64
	CurrentY  float64
}

// AssembleInput is everything a capture session holds when the participant
// moves on from a slide.
type AssembleInput struct {
	SlideID          string
	ParticipantAlias string
	Canvas           canvas.Resolution
	Strokes          []Stroke
	Stamps           []Stamp
	TextAnswers      map[string]string
	DragStates       []DragState
	Elements         []slide.Element
	Now              time.Time // zero means time.Now()
}

// Assemble builds the Interaction Record for one slide visit.
//
// Text answers and drag positions are kept only for element ids that exist
// on the slide; entries referencing since-deleted elements are dropped
// silently. Strokes and stamps are deep-copied so the caller may discard or
// reuse its capture buffers.
func Assemble(in AssembleInput) *Record {
	ids := make(map[string]slide.Kind, len(in.Elements))
	for _, e := range in.Elements {
		ids[e.ID] = e.Kind
	}

	text := make(map[string]string, len(in.TextAnswers))
	for id, v := range in.TextAnswers {
		if _, ok := ids[id]; !ok {
			logging.Logger().Debug("dropping text answer for unknown element", "slide", in.SlideID, "element", id)
			continue
		}
		text[id] = v
	}

	drags := make([]DragFinal, 0, len(in.DragStates))
	for _, d := range in.DragStates {
		if ids[d.ElementID] != slide.KindDrag {
			continue
		}
		drags = append(drags, DragFinal{ElementID: d.ElementID, X: d.CurrentX, Y: d.CurrentY})
	}

	strokes := make([]Stroke, len(in.Strokes))
	for i, s := range in.Strokes {
		strokes[i] = Stroke{Color: s.Color, Width: s.Width, Points: append([]Point(nil), s.Points...)}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &Record{
		SlideID:          in.SlideID,
		ParticipantAlias: in.ParticipantAlias,
		Canvas:           in.Canvas,
		Strokes:          strokes,
		Stamps:           append([]Stamp{}, in.Stamps...),
		TextAnswers:      text,
		DragFinal:        drags,
		CreatedAt:        now.Unix(),
	}
}

// Restrict drops text answers and drag results that do not reference an
// element of sl (drag results must reference a drag target). It returns how
// many entries were dropped.
func (r *Record) Restrict(sl *slide.Slide) int {
	ids := make(map[string]slide.Kind, len(sl.Elements))
	for _, e := range sl.Elements {
		ids[e.ID] = e.Kind
	}

	dropped := 0
	for id := range r.TextAnswers {
		if _, ok := ids[id]; !ok {
			delete(r.TextAnswers, id)
			dropped++
		}
	}

	drags := r.DragFinal[:0]
	for _, d := range r.DragFinal {
		if ids[d.ElementID] != slide.KindDrag {
			dropped++
			continue
		}
		drags = append(drags, d)
	}
	r.DragFinal = drags
	return dropped
}
