package capture

import (
	"math"

	"github.com/hpungsan/lamina/internal/slide"
)

// Tool is the active input mode of one capture session.
type Tool string

const (
	ToolNone  Tool = ""
	ToolDraw  Tool = "draw"
	ToolStamp Tool = "stamp"
	ToolDrag  Tool = "drag"
	ToolText  Tool = "text"
)

// toolPriority orders the initial tool pick when a slide offers several.
var toolPriority = []Tool{ToolDraw, ToolDrag, ToolStamp, ToolText}

// Palette is the participant's stroke color choice.
var Palette = []string{"#ef4444", "#10b981", "#3b82f6", "#f59e0b", "#ffffff", "#000000"}

// Stroke width bounds, in canvas units.
const (
	MinStrokeWidth     = 2
	MaxStrokeWidth     = 30
	DefaultStrokeWidth = 8
	DefaultStrokeColor = "#ef4444"
)

func toolFor(k slide.Kind) Tool {
	switch k {
	case slide.KindDraw:
		return ToolDraw
	case slide.KindStamp:
		return ToolStamp
	case slide.KindDrag:
		return ToolDrag
	case slide.KindText:
		return ToolText
	}
	return ToolNone
}

// AvailableTools returns the tools a slide offers, one per distinct element
// kind, in priority order.
func AvailableTools(s *slide.Slide) []Tool {
	have := make(map[Tool]bool)
	for _, k := range s.Kinds() {
		if t := toolFor(k); t != ToolNone {
			have[t] = true
		}
	}
	var tools []Tool
	for _, t := range toolPriority {
		if have[t] {
			tools = append(tools, t)
		}
	}
	return tools
}

// DefaultTool picks the initial tool for a slide: draw, then drag, then
// stamp, then text. A slide with no interactive elements gets ToolNone.
func DefaultTool(s *slide.Slide) Tool {
	if tools := AvailableTools(s); len(tools) > 0 {
		return tools[0]
	}
	return ToolNone
}

func clampWidth(w float64) float64 {
	if math.IsNaN(w) || w <= 0 {
		return DefaultStrokeWidth
	}
	return math.Max(MinStrokeWidth, math.Min(MaxStrokeWidth, w))
}
