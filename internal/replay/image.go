package replay

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/record"
)

// RenderImage replays rec onto a transparent image at the full virtual
// resolution of res.
func RenderImage(rec *record.Record, res canvas.Resolution, style Style) (*image.RGBA, Stats, error) {
	if !res.Valid() {
		return nil, Stats{}, fmt.Errorf("invalid canvas %vx%v", res.Width, res.Height)
	}
	dc := gg.NewContext(int(res.Width), int(res.Height))
	defer dc.Close()

	stats, err := Render(dc, rec, res, style)
	if err != nil {
		return nil, stats, err
	}
	return toRGBA(dc.Image()), stats, nil
}

// DisplayOptions controls how a replay is composed for one viewport.
type DisplayOptions struct {
	Style Style

	// Background, when set, is drawn under the ink covering the stage.
	Background image.Image

	// Matte fills the viewport outside the stage. Nil leaves it transparent.
	Matte color.Color
}

// Display replays rec for a viewport of the given pixel size. The record
// is drawn at the virtual resolution, then scaled into the stage the
// viewport fitter computes for this viewport, letterboxed and centered.
func Display(rec *record.Record, res canvas.Resolution, viewportWidth, viewportHeight int, opts DisplayOptions) (*image.RGBA, canvas.Stage, Stats, error) {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return nil, canvas.Stage{}, Stats{}, fmt.Errorf("invalid viewport %dx%d", viewportWidth, viewportHeight)
	}
	res = CanvasFor(rec, res)

	ink, stats, err := RenderImage(rec, res, opts.Style)
	if err != nil {
		return nil, canvas.Stage{}, stats, err
	}

	stage := canvas.Layout(float64(viewportWidth), float64(viewportHeight), res)
	dst := image.NewRGBA(image.Rect(0, 0, viewportWidth, viewportHeight))
	if opts.Matte != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Matte), image.Point{}, draw.Src)
	}

	sr := stageRect(stage)
	if sr.Empty() {
		return dst, stage, stats, nil
	}
	if opts.Background != nil {
		draw.CatmullRom.Scale(dst, sr, opts.Background, coverRect(opts.Background.Bounds(), sr), draw.Src, nil)
	}
	draw.CatmullRom.Scale(dst, sr, ink, ink.Bounds(), draw.Over, nil)
	return dst, stage, stats, nil
}

// DecodeBackground decodes a slide background image (PNG, JPEG or WebP).
func DecodeBackground(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	return img, nil
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	dc := gg.NewContextForImage(img)
	defer dc.Close()
	return dc.EncodePNG(w)
}

// stageRect rounds a stage to whole pixels.
func stageRect(s canvas.Stage) image.Rectangle {
	x0 := int(math.Round(s.X))
	y0 := int(math.Round(s.Y))
	x1 := int(math.Round(s.X + s.Width))
	y1 := int(math.Round(s.Y + s.Height))
	return image.Rect(x0, y0, x1, y1)
}

// coverRect returns the centered part of src with the aspect ratio of dst,
// so scaling it into dst fills dst without distortion.
func coverRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	dw, dh := float64(dst.Dx()), float64(dst.Dy())
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return src
	}
	if sw/sh > dw/dh {
		w := int(math.Round(sh * dw / dh))
		x := src.Min.X + (src.Dx()-w)/2
		return image.Rect(x, src.Min.Y, x+w, src.Max.Y)
	}
	h := int(math.Round(sw * dh / dw))
	y := src.Min.Y + (src.Dy()-h)/2
	return image.Rect(src.Min.X, y, src.Max.X, y+h)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
