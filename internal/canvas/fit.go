package canvas

import "math"

// Size is a width/height pair in device pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fit returns the largest stage with the given aspect ratio that fits
// entirely inside the viewport. A viewport relatively wider than the aspect
// ratio is letterboxed left/right (height-bound); otherwise top/bottom
// (width-bound). Degenerate inputs yield a zero size.
func Fit(viewportWidth, viewportHeight, aspectRatio float64) Size {
	if viewportWidth <= 0 || viewportHeight <= 0 || aspectRatio <= 0 {
		return Size{}
	}
	if viewportWidth/viewportHeight > aspectRatio {
		return Size{Width: viewportHeight * aspectRatio, Height: viewportHeight}
	}
	return Size{Width: viewportWidth, Height: viewportWidth / aspectRatio}
}

// Stage is the on-screen rectangle representing a virtual canvas on one
// viewport. X and Y are the stage origin in viewport pixels.
type Stage struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Canvas Resolution `json:"canvas"`
}

// Layout fits res into a viewport and centers the stage in it.
func Layout(viewportWidth, viewportHeight float64, res Resolution) Stage {
	size := Fit(viewportWidth, viewportHeight, res.AspectRatio())
	return Stage{
		X:      (viewportWidth - size.Width) / 2,
		Y:      (viewportHeight - size.Height) / 2,
		Width:  size.Width,
		Height: size.Height,
		Canvas: res,
	}
}

// Empty reports whether the stage has no visible area.
func (s Stage) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Scale returns device pixels per virtual-canvas unit.
func (s Stage) Scale() float64 {
	if s.Canvas.Width <= 0 {
		return 0
	}
	return s.Width / s.Canvas.Width
}

// ToVirtual converts a pointer position in viewport pixels to canvas units.
// The result is clamped to the canvas so pointer events captured outside
// the stage never produce out-of-range coordinates.
func (s Stage) ToVirtual(pointerX, pointerY float64) (vx, vy float64) {
	if s.Empty() {
		return 0, 0
	}
	vx = (pointerX - s.X) / s.Width * s.Canvas.Width
	vy = (pointerY - s.Y) / s.Height * s.Canvas.Height
	return clamp(vx, 0, s.Canvas.Width), clamp(vy, 0, s.Canvas.Height)
}

// ToScreen converts canvas units to viewport pixels. It is the inverse of
// ToVirtual for points on the canvas.
func (s Stage) ToScreen(vx, vy float64) (px, py float64) {
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		return s.X, s.Y
	}
	return s.X + vx/s.Canvas.Width*s.Width, s.Y + vy/s.Canvas.Height*s.Height
}

// Fitter caches the stage for one viewport. Resize may be called on every
// resize/orientation event; it only recomputes the cached stage.
type Fitter struct {
	canvas Resolution
	stage  Stage
}

// NewFitter creates a fitter for res with an initial viewport.
func NewFitter(res Resolution, viewportWidth, viewportHeight float64) *Fitter {
	f := &Fitter{canvas: res}
	f.Resize(viewportWidth, viewportHeight)
	return f
}

// Resize recomputes the stage for a new viewport and returns it.
func (f *Fitter) Resize(viewportWidth, viewportHeight float64) Stage {
	f.stage = Layout(viewportWidth, viewportHeight, f.canvas)
	return f.stage
}

// Stage returns the cached stage.
func (f *Fitter) Stage() Stage {
	return f.stage
}

// Canvas returns the virtual canvas this fitter maps.
func (f *Fitter) Canvas() Resolution {
	return f.canvas
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Rect is an axis-aligned rectangle in canvas units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenteredRect returns the rectangle of the given size centered on (cx, cy).
func CenteredRect(cx, cy, width, height float64) Rect {
	return Rect{X: cx - width/2, Y: cy - height/2, Width: width, Height: height}
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}
