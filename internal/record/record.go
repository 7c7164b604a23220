// Package record defines the Interaction Record: the write-once capture of
// one participant's ink, stamps, drag results and text answers on one slide.
//
// Every coordinate in a Record is in virtual-canvas units of the canvas the
// record was captured on (Record.Canvas), never in device pixels.
package record

import (
	"encoding/json"
	"math"

	"github.com/hpungsan/lamina/internal/canvas"
)

// Point is a position in canvas units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON marks a missing coordinate as NaN so the point is treated
// as malformed instead of silently landing on the canvas edge.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.X, p.Y = orNaN(raw.X), orNaN(raw.Y)
	return nil
}

// Valid reports whether both coordinates are finite.
func (p Point) Valid() bool {
	return finite(p.X) && finite(p.Y)
}

// Stroke is one freehand ink stroke.
type Stroke struct {
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Points []Point `json:"points"`
}

// Stamp is a discrete marker placement.
type Stamp Point

// UnmarshalJSON decodes like Point.
func (s *Stamp) UnmarshalJSON(data []byte) error {
	return (*Point)(s).UnmarshalJSON(data)
}

// Valid reports whether both coordinates are finite.
func (s Stamp) Valid() bool {
	return Point(s).Valid()
}

// DragFinal is the submitted position of one drag target.
type DragFinal struct {
	ElementID string  `json:"element_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Valid reports whether the entry names an element and has finite coordinates.
func (d DragFinal) Valid() bool {
	return d.ElementID != "" && finite(d.X) && finite(d.Y)
}

// Record is an Interaction Record. Canvas is the virtual canvas the record
// was captured against, so replay keeps using the historical resolution even
// if the slide's format changes later.
type Record struct {
	ID               string            `json:"id"`
	SlideID          string            `json:"slide_id"`
	ParticipantAlias string            `json:"participant_alias"`
	Canvas           canvas.Resolution `json:"canvas"`
	Strokes          []Stroke          `json:"strokes"`
	Stamps           []Stamp           `json:"stamps"`
	TextAnswers      map[string]string `json:"text_answers"`
	DragFinal        []DragFinal       `json:"drag_final"`
	CreatedAt        int64             `json:"created_at"`
}

// PointCount returns the number of ink points across all strokes.
func (r *Record) PointCount() int {
	n := 0
	for _, s := range r.Strokes {
		n += len(s.Points)
	}
	return n
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Strokes = make([]Stroke, len(r.Strokes))
	for i, s := range r.Strokes {
		c.Strokes[i] = Stroke{Color: s.Color, Width: s.Width, Points: append([]Point(nil), s.Points...)}
	}
	c.Stamps = append([]Stamp(nil), r.Stamps...)
	c.DragFinal = append([]DragFinal(nil), r.DragFinal...)
	if r.TextAnswers != nil {
		c.TextAnswers = make(map[string]string, len(r.TextAnswers))
		for k, v := range r.TextAnswers {
			c.TextAnswers[k] = v
		}
	}
	return &c
}

// Sanitize drops malformed entries in place: non-finite points, strokes
// left with zero points, non-finite stamps, and drag entries without an
// element id or coordinates. It returns how many entries were dropped.
func (r *Record) Sanitize() int {
	dropped := 0

	strokes := r.Strokes[:0]
	for _, s := range r.Strokes {
		pts := s.Points[:0]
		for _, p := range s.Points {
			if p.Valid() {
				pts = append(pts, p)
			} else {
				dropped++
			}
		}
		s.Points = pts
		if len(s.Points) == 0 {
			dropped++
			continue
		}
		strokes = append(strokes, s)
	}
	r.Strokes = strokes

	stamps := r.Stamps[:0]
	for _, s := range r.Stamps {
		if s.Valid() {
			stamps = append(stamps, s)
		} else {
			dropped++
		}
	}
	r.Stamps = stamps

	drags := r.DragFinal[:0]
	for _, d := range r.DragFinal {
		if d.Valid() {
			drags = append(drags, d)
		} else {
			dropped++
		}
	}
	r.DragFinal = drags

	if r.TextAnswers == nil {
		r.TextAnswers = map[string]string{}
	}
	return dropped
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
