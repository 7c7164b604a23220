// Package replay reconstructs an Interaction Record on a drawing surface.
//
// Drawing always happens at the virtual canvas resolution; only the final
// display size varies with the viewport (see Display). The same point data
// therefore keeps its proportions at any display size.
package replay

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/record"
)

// Surface is the subset of a 2D drawing context replay needs.
// *gg.Context satisfies it.
type Surface interface {
	Clear()
	ClearPath()
	SetHexColor(hex string)
	SetRGBA(r, g, b, a float64)
	SetLineWidth(width float64)
	SetLineCap(lineCap gg.LineCap)
	SetLineJoin(join gg.LineJoin)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	DrawCircle(x, y, r float64)
	DrawRoundedRectangle(x, y, w, h, r float64)
	Stroke() error
	Fill() error
	FillPreserve() error
}

var _ Surface = (*gg.Context)(nil)

// Style holds the replay constants, in canvas units.
type Style struct {
	StampRadius       float64
	StampOutlineWidth float64
	StampFill         gg.RGBA
	StampOutline      string

	// Final drag positions are marked with a rounded box centered on the
	// position.
	DragMarkerSize   float64
	DragMarkerRadius float64
	DragOutlineWidth float64
	DragFill         gg.RGBA
	DragOutline      string

	// Used for strokes stored without a usable color or width.
	FallbackColor string
	FallbackWidth float64
}

// DefaultStyle returns the look of the results viewer: stamps are
// translucent red discs with a white outline, drag targets blue boxes.
func DefaultStyle() Style {
	return Style{
		StampRadius:       30,
		StampOutlineWidth: 5,
		StampFill:         gg.RGBA{R: 239.0 / 255, G: 68.0 / 255, B: 68.0 / 255, A: 0.6},
		StampOutline:      "#ffffff",
		DragMarkerSize:    60,
		DragMarkerRadius:  12,
		DragOutlineWidth:  4,
		DragFill:          gg.RGBA{R: 59.0 / 255, G: 130.0 / 255, B: 246.0 / 255, A: 0.1},
		DragOutline:       "#3b82f6",
		FallbackColor:     "#ffffff",
		FallbackWidth:     5,
	}
}

// Stats counts what Render drew and what it skipped as malformed.
type Stats struct {
	Strokes        int `json:"strokes"`
	Stamps         int `json:"stamps"`
	Drags          int `json:"drags"`
	SkippedStrokes int `json:"skipped_strokes"`
	SkippedPoints  int `json:"skipped_points"`
	SkippedStamps  int `json:"skipped_stamps"`
	SkippedDrags   int `json:"skipped_drags"`
}

// Skipped returns the total number of skipped entries.
func (s Stats) Skipped() int {
	return s.SkippedStrokes + s.SkippedPoints + s.SkippedStamps + s.SkippedDrags
}

// CanvasFor returns the canvas a record's coordinates are expressed in:
// the resolution stored on the record, or fallback for records that
// predate it.
func CanvasFor(rec *record.Record, fallback canvas.Resolution) canvas.Resolution {
	if rec.Canvas.Valid() {
		return rec.Canvas
	}
	return fallback
}

// Render clears surf and replays rec onto it. surf is assumed to be res
// sized. Strokes are drawn first, in order, then stamps, then a marker at
// each final drag position. Records captured on a different canvas are
// mapped onto res.
//
// Malformed entries (zero-point strokes, non-finite points, stamps missing
// a coordinate, unnamed or non-finite drags) are skipped and counted; they
// never fail the render.
// The returned error is the first drawing error from the surface.
func Render(surf Surface, rec *record.Record, res canvas.Resolution, style Style) (Stats, error) {
	var stats Stats
	surf.Clear()
	surf.ClearPath()
	if rec == nil {
		return stats, nil
	}

	src := CanvasFor(rec, res)
	sx, sy := 1.0, 1.0
	if src.Valid() && res.Valid() && src != res {
		sx, sy = res.Width/src.Width, res.Height/src.Height
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	surf.SetLineCap(gg.LineCapRound)
	surf.SetLineJoin(gg.LineJoinRound)

	for i, s := range rec.Strokes {
		pts := make([]record.Point, 0, len(s.Points))
		for _, p := range s.Points {
			if !p.Valid() {
				stats.SkippedPoints++
				continue
			}
			pts = append(pts, record.Point{X: p.X * sx, Y: p.Y * sy})
		}
		if len(pts) == 0 {
			logging.Logger().Debug("skipping empty stroke", "record", rec.ID, "stroke", i)
			stats.SkippedStrokes++
			continue
		}

		width := strokeWidth(s.Width, style) * sx
		surf.SetHexColor(strokeColor(s.Color, style))
		if len(pts) == 1 {
			// A tap with no movement leaves a dot the size of the pen.
			surf.DrawCircle(pts[0].X, pts[0].Y, width/2)
			keep(surf.Fill())
			stats.Strokes++
			continue
		}
		surf.SetLineWidth(width)
		surf.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			surf.LineTo(p.X, p.Y)
		}
		keep(surf.Stroke())
		stats.Strokes++
	}

	radius := style.StampRadius * sx
	for _, st := range rec.Stamps {
		if !st.Valid() {
			stats.SkippedStamps++
			continue
		}
		x, y := st.X*sx, st.Y*sy
		surf.DrawCircle(x, y, radius)
		surf.SetRGBA(style.StampFill.R, style.StampFill.G, style.StampFill.B, style.StampFill.A)
		keep(surf.FillPreserve())
		surf.SetHexColor(style.StampOutline)
		surf.SetLineWidth(style.StampOutlineWidth * sx)
		keep(surf.Stroke())
		stats.Stamps++
	}

	size := style.DragMarkerSize * sx
	for _, d := range rec.DragFinal {
		if !d.Valid() {
			stats.SkippedDrags++
			continue
		}
		x, y := d.X*sx, d.Y*sy
		surf.DrawRoundedRectangle(x-size/2, y-size/2, size, size, style.DragMarkerRadius*sx)
		surf.SetRGBA(style.DragFill.R, style.DragFill.G, style.DragFill.B, style.DragFill.A)
		keep(surf.FillPreserve())
		surf.SetHexColor(style.DragOutline)
		surf.SetLineWidth(style.DragOutlineWidth * sx)
		keep(surf.Stroke())
		stats.Drags++
	}

	if stats.Skipped() > 0 {
		logging.Logger().Debug("replay skipped malformed entries",
			"record", rec.ID, "strokes", stats.SkippedStrokes, "points", stats.SkippedPoints,
			"stamps", stats.SkippedStamps, "drags", stats.SkippedDrags)
	}
	if firstErr != nil {
		return stats, fmt.Errorf("replay record %s: %w", rec.ID, firstErr)
	}
	return stats, nil
}

func strokeWidth(w float64, style Style) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return style.FallbackWidth
	}
	return w
}

// strokeColor accepts #rgb, #rgba, #rrggbb and #rrggbbaa.
func strokeColor(c string, style Style) string {
	if len(c) < 2 || c[0] != '#' {
		return style.FallbackColor
	}
	switch len(c) - 1 {
	case 3, 4, 6, 8:
	default:
		return style.FallbackColor
	}
	for _, r := range c[1:] {
		if !isHexDigit(r) {
			return style.FallbackColor
		}
	}
	return c
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
