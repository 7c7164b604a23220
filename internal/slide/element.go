package slide

import (
	"math"

	"github.com/hpungsan/lamina/internal/canvas"
)

// Kind identifies what an author-placed element does on the slide.
type Kind string

const (
	KindText  Kind = "text"  // free-text answer field
	KindStamp Kind = "stamp" // stamp target area
	KindDrag  Kind = "drag"  // draggable icon
	KindDraw  Kind = "draw"  // enables the free-draw tool

	// kindFormatMetadata is the pseudo-element historical slides used to
	// carry their format tag. It is lifted into Slide.Format on load.
	kindFormatMetadata Kind = "format_metadata"
)

// Valid reports whether k is one of the four element kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindStamp, KindDrag, KindDraw:
		return true
	}
	return false
}

// Image scale bounds for drag targets, in percent.
const (
	MinImageScale     = 20
	MaxImageScale     = 500
	DefaultImageScale = 100
)

// Size-related fractions of the canvas. The minimum usable size and the
// defaults descend from the legacy 900x506 editor surface.
const (
	minWidthFrac  = 50.0 / LegacyReferenceWidth
	minHeightFrac = 30.0 / LegacyReferenceHeight

	// dragBaseFrac is the drag icon side at 100% image scale.
	dragBaseFrac = 0.12

	// Fallback text box size when an element has no authored size.
	textFallbackWidthFrac  = 0.40
	textFallbackHeightFrac = 0.15
)

// Element is an author-placed slide object. X and Y are the element center
// as a percentage of canvas width/height. Width and Height, when set, are in
// canvas units (see SizeUnit).
type Element struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"type"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	ImageScale float64  `json:"image_scale,omitempty"`
	Text       string   `json:"text,omitempty"`
	URL        string   `json:"url,omitempty"`

	// SizeUnit is "canvas" once sizes have been migrated to canvas units.
	// Empty means the sizes are historical editor pixels.
	SizeUnit string `json:"size_unit,omitempty"`

	// Value carries the format tag on format_metadata pseudo-elements.
	Value string `json:"value,omitempty"`
}

// SizeUnitCanvas marks element sizes expressed in canvas units.
const SizeUnitCanvas = "canvas"

// NewElement creates an element of the given kind at the canvas center
// with the editor's default size for that kind.
func NewElement(id string, kind Kind, res canvas.Resolution) Element {
	e := Element{ID: id, Kind: kind, X: 50, Y: 50, SizeUnit: SizeUnitCanvas}
	ref := DefaultLegacyReference()
	switch kind {
	case KindText:
		e.Width = ptr(ref.widthToCanvas(300, res))
		e.Height = ptr(ref.heightToCanvas(150, res))
		e.Text = "Escribe aquí..."
	case KindStamp:
		e.Width = ptr(ref.widthToCanvas(80, res))
		e.Height = ptr(ref.heightToCanvas(80, res))
	case KindDrag:
		e.ImageScale = DefaultImageScale
	}
	return e
}

// Place moves the element anchor. Both axes are clamped to [0,100] so an
// element can never be dropped fully outside the canvas.
func (e *Element) Place(xPct, yPct float64) {
	e.X = clampPct(xPct)
	e.Y = clampPct(yPct)
}

// Resizable reports whether the element exposes manual resize.
func (e *Element) Resizable() bool {
	return e.Kind == KindText || e.Kind == KindStamp
}

// Resize sets the size from the pointer's offset to the element anchor, in
// canvas units. The anchor is the element center, so the size is twice the
// offset on each axis, floored at a minimum usable size. Only text and stamp
// elements resize; other kinds are left untouched and false is returned.
func (e *Element) Resize(res canvas.Resolution, dx, dy float64) bool {
	if !e.Resizable() {
		return false
	}
	w := math.Max(minWidthFrac*res.Width, dx*2)
	h := math.Max(minHeightFrac*res.Height, dy*2)
	e.Width = &w
	e.Height = &h
	e.SizeUnit = SizeUnitCanvas
	return true
}

// SetImageScale sets a drag target's uniform scale, clamped to
// [MinImageScale, MaxImageScale]. Non-drag elements are left untouched.
func (e *Element) SetImageScale(pct float64) bool {
	if e.Kind != KindDrag {
		return false
	}
	e.ImageScale = math.Max(MinImageScale, math.Min(MaxImageScale, pct))
	return true
}

// Anchor returns the element center in canvas units.
func (e *Element) Anchor(res canvas.Resolution) (x, y float64) {
	return e.X / 100 * res.Width, e.Y / 100 * res.Height
}

// Footprint returns the element's rendered rectangle in canvas units,
// centered on (cx, cy).
func (e *Element) Footprint(res canvas.Resolution, cx, cy float64) canvas.Rect {
	w, h := e.size(res)
	return canvas.CenteredRect(cx, cy, w, h)
}

func (e *Element) size(res canvas.Resolution) (w, h float64) {
	switch e.Kind {
	case KindDrag:
		scale := e.ImageScale
		if scale <= 0 {
			scale = DefaultImageScale
		}
		side := dragBaseFrac * res.Width * scale / 100
		return side, side
	case KindText:
		w, h = textFallbackWidthFrac*res.Width, textFallbackHeightFrac*res.Height
	default:
		w, h = minWidthFrac*res.Width, minWidthFrac*res.Width
	}
	if e.Width != nil {
		w = *e.Width
	}
	if e.Height != nil {
		h = *e.Height
	}
	return w, h
}

func clampPct(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func ptr(v float64) *float64 { return &v }
