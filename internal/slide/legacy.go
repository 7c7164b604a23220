package slide

import "github.com/hpungsan/lamina/internal/canvas"

// The participant viewer of the legacy editor displayed element sizes as
// a percentage of a 900x506 reference surface, whatever the slide format.
const (
	LegacyReferenceWidth  = 900.0
	LegacyReferenceHeight = 506.0
)

// LegacyReference describes the editor surface historical element sizes
// were authored against.
type LegacyReference struct {
	Width  float64
	Height float64
}

// DefaultLegacyReference returns the 900x506 reference.
func DefaultLegacyReference() LegacyReference {
	return LegacyReference{Width: LegacyReferenceWidth, Height: LegacyReferenceHeight}
}

// Migrate converts e's sizes from editor pixels to canvas units, keeping the
// same fraction of the canvas the participant viewer displayed. Elements
// already in canvas units are left alone.
func (r LegacyReference) Migrate(e *Element, res canvas.Resolution) {
	if e.SizeUnit == SizeUnitCanvas {
		return
	}
	if r.Width <= 0 || r.Height <= 0 {
		r = DefaultLegacyReference()
	}
	if e.Width != nil {
		e.Width = ptr(r.widthToCanvas(*e.Width, res))
	}
	if e.Height != nil {
		e.Height = ptr(r.heightToCanvas(*e.Height, res))
	}
	e.SizeUnit = SizeUnitCanvas
}

func (r LegacyReference) widthToCanvas(px float64, res canvas.Resolution) float64 {
	return px / r.Width * res.Width
}

func (r LegacyReference) heightToCanvas(px float64, res canvas.Resolution) float64 {
	return px / r.Height * res.Height
}
