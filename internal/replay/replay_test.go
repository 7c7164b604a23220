package replay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/record"
)

const eps = 1e-9

// recordingSurface logs every drawing call.
type recordingSurface struct {
	ops []string
}

func (r *recordingSurface) log(format string, args ...any) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recordingSurface) Clear()                       { r.log("clear") }
func (r *recordingSurface) ClearPath()                   { r.log("clearpath") }
func (r *recordingSurface) SetHexColor(hex string)       { r.log("color %s", hex) }
func (r *recordingSurface) SetRGBA(_, _, _, a float64)   { r.log("rgba %.1f", a) }
func (r *recordingSurface) SetLineWidth(w float64)       { r.log("width %g", w) }
func (r *recordingSurface) SetLineCap(c gg.LineCap)      { r.log("cap %d", c) }
func (r *recordingSurface) SetLineJoin(j gg.LineJoin)    { r.log("join %d", j) }
func (r *recordingSurface) MoveTo(x, y float64)          { r.log("move %g,%g", x, y) }
func (r *recordingSurface) LineTo(x, y float64)          { r.log("line %g,%g", x, y) }
func (r *recordingSurface) DrawCircle(x, y, rad float64) { r.log("circle %g,%g r%g", x, y, rad) }
func (r *recordingSurface) DrawRoundedRectangle(x, y, w, h, rad float64) {
	r.log("rrect %g,%g %gx%g r%g", x, y, w, h, rad)
}
func (r *recordingSurface) Stroke() error                { r.log("stroke"); return nil }
func (r *recordingSurface) Fill() error                  { r.log("fill"); return nil }
func (r *recordingSurface) FillPreserve() error          { r.log("fillpreserve"); return nil }

func TestRender_DrawsStrokesThenStamps(t *testing.T) {
	rec := &record.Record{
		ID:     "r1",
		Canvas: canvas.Wide,
		Strokes: []record.Stroke{
			{Color: "#3b82f6", Width: 12, Points: []record.Point{{X: 10, Y: 20}, {X: 30, Y: 40}, {X: 50, Y: 60}}},
		},
		Stamps: []record.Stamp{{X: 960, Y: 540}},
	}
	surf := &recordingSurface{}

	stats, err := Render(surf, rec, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, Stats{Strokes: 1, Stamps: 1}, stats)

	require.Equal(t, []string{
		"clear",
		"clearpath",
		fmt.Sprintf("cap %d", gg.LineCapRound),
		fmt.Sprintf("join %d", gg.LineJoinRound),
		"color #3b82f6",
		"width 12",
		"move 10,20",
		"line 30,40",
		"line 50,60",
		"stroke",
		"circle 960,540 r30",
		"rgba 0.6",
		"fillpreserve",
		"color #ffffff",
		"width 5",
		"stroke",
	}, surf.ops)
}

func TestRender_SkipsMalformed(t *testing.T) {
	rec := &record.Record{
		Canvas: canvas.Wide,
		Strokes: []record.Stroke{
			{Color: "#000000", Width: 4},
			{Color: "#000000", Width: 4, Points: []record.Point{{X: math.NaN(), Y: 1}}},
			{Color: "", Width: 0, Points: []record.Point{{X: 1, Y: 1}, {X: math.Inf(1), Y: 2}, {X: 3, Y: 3}}},
		},
		Stamps: []record.Stamp{{X: math.NaN(), Y: 10}, {X: 5, Y: 5}},
	}
	surf := &recordingSurface{}

	stats, err := Render(surf, rec, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Strokes)
	require.Equal(t, 2, stats.SkippedStrokes)
	require.Equal(t, 2, stats.SkippedPoints)
	require.Equal(t, 1, stats.Stamps)
	require.Equal(t, 1, stats.SkippedStamps)

	// The surviving stroke uses the fallback style.
	require.Contains(t, surf.ops, "color #ffffff")
	require.Contains(t, surf.ops, "width 5")
	require.Contains(t, surf.ops, "move 1,1")
	require.Contains(t, surf.ops, "line 3,3")
}

func TestRender_SinglePointIsDot(t *testing.T) {
	rec := &record.Record{Strokes: []record.Stroke{{Color: "#10b981", Width: 8, Points: []record.Point{{X: 100, Y: 100}}}}}
	surf := &recordingSurface{}

	stats, err := Render(surf, rec, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Strokes)
	require.Contains(t, surf.ops, "circle 100,100 r4")
	require.Contains(t, surf.ops, "fill")
}

func TestRender_MapsHistoricalCanvas(t *testing.T) {
	// Captured on a square canvas, replayed onto a wide surface.
	rec := &record.Record{
		Canvas: canvas.Square,
		Stamps: []record.Stamp{{X: 540, Y: 540}},
	}
	surf := &recordingSurface{}

	_, err := Render(surf, rec, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	sx := canvas.Wide.Width / canvas.Square.Width
	require.Contains(t, surf.ops, fmt.Sprintf("circle %g,%g r%g", 540*sx, 540.0, 30*sx))
}

func TestRender_DrawsDragMarkers(t *testing.T) {
	rec := &record.Record{
		Canvas: canvas.Wide,
		DragFinal: []record.DragFinal{
			{ElementID: "d1", X: 960, Y: 540},
			{ElementID: "", X: 10, Y: 10},
			{ElementID: "d2", X: math.NaN(), Y: 10},
		},
	}
	surf := &recordingSurface{}

	stats, err := Render(surf, rec, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, Stats{Drags: 1, SkippedDrags: 2}, stats)
	require.Equal(t, []string{
		"rrect 930,510 60x60 r12",
		"rgba 0.1",
		"fillpreserve",
		"color #3b82f6",
		"width 4",
		"stroke",
	}, surf.ops[len(surf.ops)-6:])
}

func TestRender_NilRecordClears(t *testing.T) {
	surf := &recordingSurface{}
	stats, err := Render(surf, nil, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)
	require.Equal(t, []string{"clear", "clearpath"}, surf.ops)
}

func TestStrokeColor(t *testing.T) {
	style := DefaultStyle()
	for in, want := range map[string]string{
		"#ef4444":   "#ef4444",
		"#FFF":      "#FFF",
		"#00000080": "#00000080",
		"red":       "#ffffff",
		"#12345":    "#ffffff",
		"#gggggg":   "#ffffff",
		"":          "#ffffff",
	} {
		require.Equal(t, want, strokeColor(in, style), "input %q", in)
	}
}

func sampleRecord() *record.Record {
	return &record.Record{
		ID:     "r1",
		Canvas: canvas.Wide,
		Strokes: []record.Stroke{
			{Color: "#ef4444", Width: 8, Points: []record.Point{{X: 100, Y: 100}, {X: 300, Y: 100}}},
		},
		Stamps: []record.Stamp{{X: 960, Y: 540}},
	}
}

func TestOverlay_EndToEnd(t *testing.T) {
	ov := NewOverlay(sampleRecord(), canvas.Wide, 1200, 675, DefaultStyle())

	require.InDelta(t, 0, ov.Stage.X, eps)
	require.InDelta(t, 0, ov.Stage.Y, eps)
	require.Len(t, ov.Strokes, 1)

	pts := ov.Strokes[0].Points
	require.InDelta(t, 1200/19.2, pts[0].X, eps)
	require.InDelta(t, 3*1200/19.2, pts[1].X, eps)
	require.InDelta(t, 675/10.8, pts[0].Y, eps)
	require.InDelta(t, 675/10.8, pts[1].Y, eps)
	require.InDelta(t, 8*1200/1920.0, ov.Strokes[0].Width, eps)

	require.Len(t, ov.Stamps, 1)
	require.InDelta(t, 600, ov.Stamps[0].X, eps)
	require.InDelta(t, 337.5, ov.Stamps[0].Y, eps)
}

func TestOverlay_BoundsScaleWithStage(t *testing.T) {
	rec := sampleRecord()
	small := NewOverlay(rec, canvas.Wide, 800, 600, DefaultStyle())
	large := NewOverlay(rec, canvas.Wide, 1600, 900, DefaultStyle())

	bs, ok := small.Bounds()
	require.True(t, ok)
	bl, ok := large.Bounds()
	require.True(t, ok)

	ratio := large.Stage.Width / small.Stage.Width
	require.InDelta(t, 2, ratio, eps)
	require.InDelta(t, bs.Width*ratio, bl.Width, 1e-6)
	require.InDelta(t, bs.Height*ratio, bl.Height, 1e-6)

	// Relative to its stage, the drawing sits in the same place.
	require.InDelta(t, (bs.X-small.Stage.X)/small.Stage.Width, (bl.X-large.Stage.X)/large.Stage.Width, 1e-9)
	require.InDelta(t, (bs.Y-small.Stage.Y)/small.Stage.Height, (bl.Y-large.Stage.Y)/large.Stage.Height, 1e-9)
}

func TestOverlay_MapsDrags(t *testing.T) {
	rec := &record.Record{
		Canvas: canvas.Wide,
		DragFinal: []record.DragFinal{
			{ElementID: "d1", X: 960, Y: 540},
			{ElementID: "d2", X: math.Inf(1), Y: 0},
		},
	}
	small := NewOverlay(rec, canvas.Wide, 960, 540, DefaultStyle())
	require.Equal(t, []ScreenDrag{{ElementID: "d1", X: 480, Y: 270, Size: 30, OutlineWidth: 2}}, small.Drags)
	require.Equal(t, 1, small.Stats.Drags)
	require.Equal(t, 1, small.Stats.SkippedDrags)

	b, ok := small.Bounds()
	require.True(t, ok, "a drag-only record has geometry")
	require.InDelta(t, 480, b.X, eps)

	// letterboxed: same relative position inside the stage
	tall := NewOverlay(rec, canvas.Wide, 960, 1000, DefaultStyle())
	d := tall.Drags[0]
	require.InDelta(t, 0.5, (d.X-tall.Stage.X)/tall.Stage.Width, 1e-9)
	require.InDelta(t, 0.5, (d.Y-tall.Stage.Y)/tall.Stage.Height, 1e-9)
}

func TestOverlay_EmptyRecord(t *testing.T) {
	ov := NewOverlay(&record.Record{}, canvas.Square, 500, 500, DefaultStyle())
	_, ok := ov.Bounds()
	require.False(t, ok)
	require.Equal(t, canvas.Square, ov.Stage.Canvas)
	require.NotNil(t, ov.Strokes)
	require.NotNil(t, ov.Drags)
}

func TestRenderImage_PaintsStamp(t *testing.T) {
	img, stats, err := RenderImage(sampleRecord(), canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Stamps)
	require.Equal(t, image.Rect(0, 0, 1920, 1080), img.Bounds())

	center := img.RGBAAt(960, 540)
	require.NotZero(t, center.A, "stamp center should be painted")
	require.Greater(t, center.R, center.G)

	require.Zero(t, img.RGBAAt(1900, 1000).A, "untouched area stays transparent")
}

func TestRenderImage_PaintsDragMarker(t *testing.T) {
	rec := &record.Record{
		Canvas:    canvas.Wide,
		DragFinal: []record.DragFinal{{ElementID: "d1", X: 960, Y: 540}},
	}
	img, stats, err := RenderImage(rec, canvas.Wide, DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Drags)

	edge := img.RGBAAt(930, 540)
	require.NotZero(t, edge.A, "marker outline should be painted")
	require.Greater(t, edge.B, edge.R)
	require.NotZero(t, img.RGBAAt(960, 540).A, "marker box is filled")
	require.Zero(t, img.RGBAAt(1100, 540).A, "outside the marker stays transparent")
}

func TestDisplay_Letterboxes(t *testing.T) {
	matte := color.RGBA{A: 255}
	img, stage, _, err := Display(sampleRecord(), canvas.Wide, 400, 300, DisplayOptions{Style: DefaultStyle(), Matte: matte})
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())
	require.InDelta(t, 37.5, stage.Y, eps)
	require.InDelta(t, 400, stage.Width, eps)

	require.Equal(t, matte, img.RGBAAt(200, 10), "letterbox band keeps the matte")
	require.NotZero(t, img.RGBAAt(200, 150).R, "stamp lands at the stage center")

	_, _, _, err = Display(sampleRecord(), canvas.Wide, 0, 300, DisplayOptions{})
	require.Error(t, err)
}

func TestWritePNG(t *testing.T) {
	img, _, _, err := Display(sampleRecord(), canvas.Wide, 320, 180, DisplayOptions{Style: DefaultStyle()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 320, 180), decoded.Bounds())
}

func TestCoverRect(t *testing.T) {
	require.Equal(t, image.Rect(50, 0, 150, 100), coverRect(image.Rect(0, 0, 200, 100), image.Rect(0, 0, 50, 50)))
	require.Equal(t, image.Rect(0, 25, 100, 75), coverRect(image.Rect(0, 0, 100, 100), image.Rect(0, 0, 200, 100)))
}
