package capture

import (
	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

// drags tracks the live position of every drag target on the slide.
type drags struct {
	res      canvas.Resolution
	elements []slide.Element
	states   []record.DragState
	active   int // index into states, -1 when nothing is held
}

func newDrags(s *slide.Slide) drags {
	d := drags{res: s.Canvas(), elements: s.ElementsOf(slide.KindDrag), active: -1}
	d.reset()
	return d
}

// reset places every target back on its authored anchor, converted once
// from percent of canvas to canvas units.
func (d *drags) reset() {
	d.states = make([]record.DragState, len(d.elements))
	for i := range d.elements {
		x, y := d.elements[i].Anchor(d.res)
		d.states[i] = record.DragState{ElementID: d.elements[i].ID, CurrentX: x, CurrentY: y}
	}
	d.active = -1
}

// grab activates the topmost target whose footprint contains p.
// Later targets render above earlier ones.
func (d *drags) grab(p record.Point) bool {
	for i := len(d.states) - 1; i >= 0; i-- {
		st := d.states[i]
		if d.elements[i].Footprint(d.res, st.CurrentX, st.CurrentY).Contains(p.X, p.Y) {
			d.active = i
			return true
		}
	}
	return false
}

func (d *drags) move(p record.Point) bool {
	if d.active < 0 {
		return false
	}
	d.states[d.active].CurrentX = p.X
	d.states[d.active].CurrentY = p.Y
	return true
}

func (d *drags) release() {
	d.active = -1
}

func (d *drags) snapshot() []record.DragState {
	return append([]record.DragState{}, d.states...)
}
