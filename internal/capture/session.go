// Package capture turns live pointer input on one slide into canvas-unit
// ink strokes, stamps, drag positions and text answers, and hands the
// assembled Interaction Record to a persistence collaborator.
//
// A Session is local to one participant and one slide. Pointer methods take
// device pixels, convert them through the session's viewport fitter and
// return immediately; none of them perform I/O.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

// SlideLoader loads a slide's definition before a session starts.
type SlideLoader interface {
	LoadSlide(ctx context.Context, slideID string) (*slide.Slide, error)
}

// RecordSaver persists an assembled record. Implementations assign the
// record id.
type RecordSaver interface {
	SaveInteractionRecord(ctx context.Context, rec *record.Record) error
}

// Options configures a new Session.
type Options struct {
	Alias          string
	ViewportWidth  float64
	ViewportHeight float64

	// Preview sessions capture normally but never persist.
	Preview bool

	// Stroke defaults; zero values fall back to DefaultStrokeColor and
	// DefaultStrokeWidth.
	Color string
	Width float64

	// LegacyReference migrates element sizes of slides that were not
	// normalized by their loader. The zero value means the 900x506 default.
	LegacyReference slide.LegacyReference

	// Now overrides the record timestamp clock (tests).
	Now func() time.Time
}

// Session is a capture-session handle.
type Session struct {
	mu sync.Mutex

	slide   *slide.Slide
	fitter  *canvas.Fitter
	alias   string
	preview bool
	now     func() time.Time

	tool  Tool
	tools []Tool
	color string
	width float64

	ink    ink
	stamps stamps
	drags  drags
	text   map[string]string
}

// Start loads the slide and opens a session on it.
func Start(ctx context.Context, loader SlideLoader, slideID string, opts Options) (*Session, error) {
	s, err := loader.LoadSlide(ctx, slideID)
	if err != nil {
		return nil, fmt.Errorf("load slide %s: %w", slideID, err)
	}
	return NewSession(s, opts), nil
}

// NewSession opens a session on an already loaded slide. The slide is
// normalized copy-on-read; the caller's value is not modified.
func NewSession(s *slide.Slide, opts Options) *Session {
	sl := *s
	sl.Elements = append([]slide.Element(nil), s.Elements...)
	slide.Normalize(&sl, opts.LegacyReference)

	color := opts.Color
	if color == "" {
		color = DefaultStrokeColor
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sess := &Session{
		slide:   &sl,
		fitter:  canvas.NewFitter(sl.Canvas(), opts.ViewportWidth, opts.ViewportHeight),
		alias:   opts.Alias,
		preview: opts.Preview,
		now:     now,
		tools:   AvailableTools(&sl),
		tool:    DefaultTool(&sl),
		color:   color,
		width:   clampWidth(opts.Width),
		drags:   newDrags(&sl),
		text:    make(map[string]string),
	}
	logging.Logger().Debug("capture session started",
		"slide", sl.ID, "alias", opts.Alias, "format", sl.Format, "tool", sess.tool, "preview", opts.Preview)
	return sess
}

// Slide returns the normalized slide the session captures on.
func (s *Session) Slide() *slide.Slide { return s.slide }

// Canvas returns the session's virtual canvas.
func (s *Session) Canvas() canvas.Resolution { return s.fitter.Canvas() }

// Resize recomputes the stage for a new viewport. Idempotent.
func (s *Session) Resize(viewportWidth, viewportHeight float64) canvas.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fitter.Resize(viewportWidth, viewportHeight)
}

// Stage returns the current on-screen stage.
func (s *Session) Stage() canvas.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fitter.Stage()
}

// Tools returns the tools the slide offers.
func (s *Session) Tools() []Tool {
	return append([]Tool(nil), s.tools...)
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetTool switches the active tool. Tools the slide does not offer are
// refused. Switching away from draw seals any open stroke and switching
// away from drag releases any held target.
func (s *Session) SetTool(t Tool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.offers(t) {
		return false
	}
	s.ink.end()
	s.drags.release()
	s.tool = t
	return true
}

func (s *Session) offers(t Tool) bool {
	for _, have := range s.tools {
		if have == t {
			return true
		}
	}
	return false
}

// SetColor sets the color of strokes started from now on.
func (s *Session) SetColor(color string) {
	if color == "" {
		return
	}
	s.mu.Lock()
	s.color = color
	s.mu.Unlock()
}

// SetWidth sets the width of strokes started from now on, clamped to
// [MinStrokeWidth, MaxStrokeWidth].
func (s *Session) SetWidth(width float64) {
	s.mu.Lock()
	s.width = clampWidth(width)
	s.mu.Unlock()
}

// SetText records the answer typed into a text element.
func (s *Session) SetText(elementID, value string) {
	s.mu.Lock()
	s.text[elementID] = value
	s.mu.Unlock()
}

// point converts device pixels to canvas units. It reports false while the
// viewport is degenerate.
func (s *Session) point(px, py float64) (record.Point, bool) {
	st := s.fitter.Stage()
	if st.Empty() {
		return record.Point{}, false
	}
	x, y := st.ToVirtual(px, py)
	return record.Point{X: x, Y: y}, true
}

// PointerDown starts a stroke, places a stamp or grabs a drag target,
// depending on the active tool. Anything else is ignored.
func (s *Session) PointerDown(px, py float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.point(px, py)
	if !ok {
		return
	}
	switch s.tool {
	case ToolDraw:
		s.ink.begin(s.color, s.width, p)
	case ToolStamp:
		s.stamps.place(p)
	case ToolDrag:
		s.drags.grab(p)
	}
}

// PointerMove extends the open stroke or moves the held drag target.
func (s *Session) PointerMove(px, py float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.point(px, py)
	if !ok {
		return
	}
	switch s.tool {
	case ToolDraw:
		s.ink.move(p)
	case ToolDrag:
		s.drags.move(p)
	}
}

// PointerUp seals the open stroke and releases the held drag target.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ink.end()
	s.drags.release()
}

// PointerLeave seals the open stroke. A held drag target stays held; the
// pointer is captured until PointerUp.
func (s *Session) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ink.end()
}

// Drawing reports whether a stroke is in progress.
func (s *Session) Drawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ink.drawing
}

// Undo removes the most recent stroke or stamp, depending on the active
// tool. The two histories are independent. It reports whether anything was
// removed; an empty history is a no-op.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.tool {
	case ToolDraw:
		return s.ink.undo()
	case ToolStamp:
		return s.stamps.undo()
	}
	return false
}

// Clear is the participant reset control: it empties strokes, stamps and
// text answers. Drag targets keep their positions.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ink.clear()
	s.stamps.clear()
	s.text = make(map[string]string)
}

// Strokes returns a copy of the captured strokes.
func (s *Session) Strokes() []record.Stroke {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ink.snapshot()
}

// Stamps returns a copy of the placed stamps.
func (s *Session) Stamps() []record.Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stamps.snapshot()
}

// DragStates returns a copy of the drag target positions.
func (s *Session) DragStates() []record.DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drags.snapshot()
}

// Assemble builds the Interaction Record from the current capture state
// without modifying it.
func (s *Session) Assemble() *record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assemble()
}

func (s *Session) assemble() *record.Record {
	text := make(map[string]string, len(s.text))
	for k, v := range s.text {
		text[k] = v
	}
	return record.Assemble(record.AssembleInput{
		SlideID:          s.slide.ID,
		ParticipantAlias: s.alias,
		Canvas:           s.fitter.Canvas(),
		Strokes:          s.ink.strokes,
		Stamps:           s.stamps.placed,
		TextAnswers:      text,
		DragStates:       s.drags.states,
		Elements:         s.slide.Elements,
		Now:              s.now(),
	})
}

// Submit assembles the record and hands it to saver. On success the
// capture state is discarded. On failure the state is kept so the caller
// can retry, and the error is returned for the UI to surface.
// Preview sessions return the assembled record without saving.
func (s *Session) Submit(ctx context.Context, saver RecordSaver) (*record.Record, error) {
	s.mu.Lock()
	s.ink.end()
	s.drags.release()
	rec := s.assemble()
	preview := s.preview
	s.mu.Unlock()

	if preview {
		logging.Logger().Debug("preview session, record not saved", "slide", rec.SlideID)
		s.discard()
		return rec, nil
	}

	if err := saver.SaveInteractionRecord(ctx, rec); err != nil {
		logging.Logger().Warn("save interaction record failed", "slide", rec.SlideID, "alias", rec.ParticipantAlias, "error", err)
		return nil, fmt.Errorf("save interaction record: %w", err)
	}

	s.discard()
	return rec, nil
}

func (s *Session) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ink.clear()
	s.stamps.clear()
	s.drags.reset()
	s.text = make(map[string]string)
}
