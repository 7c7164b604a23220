package capture

import "github.com/hpungsan/lamina/internal/record"

// ink is the Ink Capture Engine state machine: idle, or a stroke in
// progress as the last element of strokes.
type ink struct {
	strokes []record.Stroke
	drawing bool
}

// begin opens a stroke whose first point is the pointer-down position.
func (k *ink) begin(color string, width float64, p record.Point) {
	k.strokes = append(k.strokes, record.Stroke{
		Color:  color,
		Width:  width,
		Points: []record.Point{p},
	})
	k.drawing = true
}

// move appends p verbatim. No thinning: every move while drawing is kept.
func (k *ink) move(p record.Point) bool {
	if !k.drawing {
		return false
	}
	last := &k.strokes[len(k.strokes)-1]
	last.Points = append(last.Points, p)
	return true
}

func (k *ink) end() {
	k.drawing = false
}

// undo removes the most recent stroke, sealing it first if still open.
func (k *ink) undo() bool {
	k.drawing = false
	if len(k.strokes) == 0 {
		return false
	}
	k.strokes = k.strokes[:len(k.strokes)-1]
	return true
}

func (k *ink) clear() {
	k.strokes = nil
	k.drawing = false
}

func (k *ink) snapshot() []record.Stroke {
	out := make([]record.Stroke, len(k.strokes))
	for i, s := range k.strokes {
		out[i] = record.Stroke{Color: s.Color, Width: s.Width, Points: append([]record.Point(nil), s.Points...)}
	}
	return out
}
