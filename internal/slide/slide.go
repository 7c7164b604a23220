// Package slide holds the authoring-time slide definition: its format and
// the elements an author places on it.
package slide

import (
	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/logging"
)

// Slide is one authored slide. Its Format selects the virtual canvas every
// element anchor and every captured coordinate is expressed in.
type Slide struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id,omitempty"`
	Format        canvas.Format `json:"format,omitempty"`
	BackgroundURL string        `json:"background_url,omitempty"`
	AudioURL      string        `json:"audio_url,omitempty"`
	Elements      []Element     `json:"elements"`
	OrderIndex    int           `json:"order_index"`
	CreatedAt     int64         `json:"created_at,omitempty"`
	UpdatedAt     int64         `json:"updated_at,omitempty"`
}

// Canvas returns the virtual canvas for the slide's format.
func (s *Slide) Canvas() canvas.Resolution {
	return canvas.ResolutionFor(string(s.Format))
}

// Element returns the element with the given id.
func (s *Slide) Element(id string) (*Element, bool) {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return &s.Elements[i], true
		}
	}
	return nil, false
}

// ElementIDs returns the set of element ids on the slide.
func (s *Slide) ElementIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Elements))
	for _, e := range s.Elements {
		ids[e.ID] = true
	}
	return ids
}

// ElementsOf returns the elements of one kind, in slide order.
func (s *Slide) ElementsOf(kind Kind) []Element {
	var out []Element
	for _, e := range s.Elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Kinds returns the distinct element kinds on the slide in first-seen order.
func (s *Slide) Kinds() []Kind {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, e := range s.Elements {
		if !seen[e.Kind] {
			seen[e.Kind] = true
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

// Normalize brings a stored slide to the current representation:
//   - a format_metadata pseudo-element is lifted into Format (an explicit
//     Format wins) and dropped from Elements;
//   - format tags are canonicalized ("16/9" → "wide"), unknown ones reset
//     to the default;
//   - anchors are clamped to [0,100];
//   - historical editor-pixel sizes are migrated to canvas units via ref;
//   - drag targets get a default image scale and are clamped to its bounds.
//
// Elements of unknown kind are dropped. Normalize is idempotent.
func Normalize(s *Slide, ref LegacyReference) {
	elements := make([]Element, 0, len(s.Elements))
	for _, e := range s.Elements {
		if e.Kind == kindFormatMetadata {
			if s.Format == "" {
				s.Format = canvas.Format(e.Value)
			}
			continue
		}
		if !e.Kind.Valid() {
			logging.Logger().Debug("dropping element of unknown kind", "slide", s.ID, "element", e.ID, "kind", e.Kind)
			continue
		}
		elements = append(elements, e)
	}
	s.Elements = elements

	if f, ok := canvas.ParseFormat(string(s.Format)); ok {
		s.Format = f
	} else {
		if s.Format != "" {
			logging.Logger().Warn("unknown slide format, using default", "slide", s.ID, "format", s.Format)
		}
		s.Format = canvas.DefaultFormat
	}

	res := s.Canvas()
	for i := range s.Elements {
		e := &s.Elements[i]
		e.Place(e.X, e.Y)
		ref.Migrate(e, res)
		if e.Kind == KindDrag {
			if e.ImageScale == 0 {
				e.ImageScale = DefaultImageScale
			}
			e.SetImageScale(e.ImageScale)
		}
	}
}
