package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/lamina/internal/canvas"
	"github.com/hpungsan/lamina/internal/slide"
)

// legacyRow is the interactions row shape written by the legacy web app.
// Icon positions carry no element id; they were written in the order the
// slide's drag targets appeared.
type legacyRow struct {
	ID            string            `json:"id"`
	SlideID       string            `json:"slide_id"`
	Alias         string            `json:"alias"`
	Drawings      []Stroke          `json:"drawings"`
	Stamps        []Stamp           `json:"stamps"`
	TextResponses map[string]string `json:"text_responses"`
	IconPositions []Point           `json:"icon_positions"`
	CreatedAt     string            `json:"created_at"`
}

// IsLegacy reports whether a JSON object looks like a legacy row.
func IsLegacy(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, hasDrawings := probe["drawings"]
	_, hasAlias := probe["alias"]
	return hasDrawings || hasAlias
}

// DecodeLegacy converts a legacy row into a Record against its slide.
// Legacy rows were captured on a 1920x1080 surface whatever the slide
// format, so the record's canvas is always wide; replay maps it onto a
// square slide. The slide supplies the drag target order. Malformed entries
// are dropped as in Sanitize.
func DecodeLegacy(data []byte, sl *slide.Slide) (*Record, error) {
	var row legacyRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode legacy interaction: %w", err)
	}

	rec := &Record{
		ID:               row.ID,
		SlideID:          row.SlideID,
		ParticipantAlias: row.Alias,
		Strokes:          row.Drawings,
		Stamps:           row.Stamps,
		TextAnswers:      row.TextResponses,
		Canvas:           canvas.Wide,
	}
	if sl != nil {
		if rec.SlideID == "" {
			rec.SlideID = sl.ID
		}
		targets := sl.ElementsOf(slide.KindDrag)
		for i, p := range row.IconPositions {
			if i >= len(targets) {
				break
			}
			rec.DragFinal = append(rec.DragFinal, DragFinal{ElementID: targets[i].ID, X: p.X, Y: p.Y})
		}
	}

	if row.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
			rec.CreatedAt = t.Unix()
		}
	}

	rec.Sanitize()
	return rec, nil
}
