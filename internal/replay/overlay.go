package replay

import (
	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/record"
)

// ScreenStroke is a stroke in viewport pixels.
type ScreenStroke struct {
	Color  string         `json:"color"`
	Width  float64        `json:"width"`
	Points []record.Point `json:"points"`
}

// ScreenStamp is a stamp disc in viewport pixels.
type ScreenStamp struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Radius       float64 `json:"radius"`
	OutlineWidth float64 `json:"outline_width"`
}

// ScreenDrag is the final position of one drag target in viewport pixels,
// with the marker box size Render draws around it.
type ScreenDrag struct {
	ElementID    string  `json:"element_id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Size         float64 `json:"size"`
	OutlineWidth float64 `json:"outline_width"`
}

// Overlay is a record mapped onto one viewport, for clients that draw the
// results themselves.
type Overlay struct {
	Stage   canvas.Stage   `json:"stage"`
	Strokes []ScreenStroke `json:"strokes"`
	Stamps  []ScreenStamp  `json:"stamps"`
	Drags   []ScreenDrag   `json:"drags"`
	Stats   Stats          `json:"stats"`
}

// NewOverlay maps rec onto a viewport through the same stage math used at
// capture time. Malformed entries are skipped as in Render.
func NewOverlay(rec *record.Record, res canvas.Resolution, viewportWidth, viewportHeight float64, style Style) Overlay {
	res = CanvasFor(rec, res)
	stage := canvas.Layout(viewportWidth, viewportHeight, res)
	scale := stage.Scale()

	ov := Overlay{Stage: stage, Strokes: []ScreenStroke{}, Stamps: []ScreenStamp{}, Drags: []ScreenDrag{}}
	for _, s := range rec.Strokes {
		pts := make([]record.Point, 0, len(s.Points))
		for _, p := range s.Points {
			if !p.Valid() {
				ov.Stats.SkippedPoints++
				continue
			}
			x, y := stage.ToScreen(p.X, p.Y)
			pts = append(pts, record.Point{X: x, Y: y})
		}
		if len(pts) == 0 {
			ov.Stats.SkippedStrokes++
			continue
		}
		ov.Strokes = append(ov.Strokes, ScreenStroke{
			Color:  strokeColor(s.Color, style),
			Width:  strokeWidth(s.Width, style) * scale,
			Points: pts,
		})
		ov.Stats.Strokes++
	}
	for _, st := range rec.Stamps {
		if !st.Valid() {
			ov.Stats.SkippedStamps++
			continue
		}
		x, y := stage.ToScreen(st.X, st.Y)
		ov.Stamps = append(ov.Stamps, ScreenStamp{
			X:            x,
			Y:            y,
			Radius:       style.StampRadius * scale,
			OutlineWidth: style.StampOutlineWidth * scale,
		})
		ov.Stats.Stamps++
	}
	for _, d := range rec.DragFinal {
		if !d.Valid() {
			ov.Stats.SkippedDrags++
			continue
		}
		x, y := stage.ToScreen(d.X, d.Y)
		ov.Drags = append(ov.Drags, ScreenDrag{
			ElementID:    d.ElementID,
			X:            x,
			Y:            y,
			Size:         style.DragMarkerSize * scale,
			OutlineWidth: style.DragOutlineWidth * scale,
		})
		ov.Stats.Drags++
	}
	return ov
}

// Bounds returns the bounding box of all stroke points, stamp centers and
// drag positions.
// ok is false when the overlay is empty.
func (o Overlay) Bounds() (r canvas.Rect, ok bool) {
	minX, minY, maxX, maxY := 0.0, 0.0, 0.0, 0.0
	add := func(x, y float64) {
		if !ok {
			minX, minY, maxX, maxY = x, y, x, y
			ok = true
			return
		}
		minX, minY = min(minX, x), min(minY, y)
		maxX, maxY = max(maxX, x), max(maxY, y)
	}
	for _, s := range o.Strokes {
		for _, p := range s.Points {
			add(p.X, p.Y)
		}
	}
	for _, st := range o.Stamps {
		add(st.X, st.Y)
	}
	for _, d := range o.Drags {
		add(d.X, d.Y)
	}
	return canvas.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, ok
}
