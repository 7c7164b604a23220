package web

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/ops"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

const (
	maxSlideBody  = 4 << 20
	maxRecordBody = 64 << 20

	thumbWidth = 320
)

// Handlers contains HTTP route handlers for the results viewer and JSON API.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleSlides handles GET /slides: slides, optionally for one project.
func (h *Handlers) HandleSlides(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")

	result, err := ops.ListSlides(r.Context(), h.db, h.cfg, ops.ListSlidesInput{ProjectID: projectID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "slides", SlidesPageData{
		PageData: PageData{
			Title:   "Slides",
			Version: h.renderer.version,
			Nav:     "slides",
		},
		ProjectID: projectID,
		Items:     result.Items,
	})
}

// HandleResults handles GET /results/{slideID}: every participant's latest
// submission on one slide.
func (h *Handlers) HandleResults(w http.ResponseWriter, r *http.Request) {
	slideID := mux.Vars(r)["slideID"]

	sl, err := ops.LoadSlide(r.Context(), h.db, h.cfg, ops.LoadSlideInput{ID: slideID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	results, err := ops.ResultsByParticipant(r.Context(), h.db, ops.ResultsInput{SlideIDs: []string{slideID}})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var prompts []Prompt
	for _, e := range sl.ElementsOf(slide.KindText) {
		prompts = append(prompts, Prompt{ElementID: e.ID, HTML: renderMarkdown(e.Text)})
	}

	rows := make([]ParticipantRow, 0, len(results.Participants))
	for _, p := range results.Participants {
		rec := p.Latest[slideID]
		if rec == nil {
			continue
		}
		row := ParticipantRow{
			Alias:       p.Alias,
			RecordID:    rec.ID,
			Submissions: p.Submissions,
			CreatedAt:   rec.CreatedAt,
			Strokes:     len(rec.Strokes),
			Points:      rec.PointCount(),
			Stamps:      len(rec.Stamps),
			Drags:       len(rec.DragFinal),
			Answers:     make([]Answer, len(prompts)),
		}
		for i, pr := range prompts {
			row.Answers[i] = Answer{Prompt: pr.HTML, HTML: renderMarkdown(rec.TextAnswers[pr.ElementID])}
		}
		rows = append(rows, row)
	}

	res := sl.Canvas()
	h.renderer.renderPage(w, "results", ResultsPageData{
		PageData: PageData{
			Title:   "Results: " + sl.ID,
			Version: h.renderer.version,
			Nav:     "results",
		},
		Slide:        sl,
		Prompts:      prompts,
		Participants: rows,
		ThumbWidth:   thumbWidth,
		ThumbHeight:  int(math.Round(thumbWidth * res.Height / res.Width)),
	})
}

// HandleGetSlide handles GET /api/slides/{id}.
func (h *Handlers) HandleGetSlide(w http.ResponseWriter, r *http.Request) {
	sl, err := ops.LoadSlide(r.Context(), h.db, h.cfg, ops.LoadSlideInput{ID: mux.Vars(r)["id"]})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, sl)
}

// HandlePutSlide handles PUT /api/slides/{id}. The body id, when present,
// must match the path.
func (h *Handlers) HandlePutSlide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var sl slide.Slide
	if err := decodeBody(w, r, maxSlideBody, &sl); err != nil {
		renderAPIError(w, err)
		return
	}
	if sl.ID != "" && sl.ID != id {
		renderAPIError(w, errors.NewInvalidRequest(fmt.Sprintf("body id %q does not match path id %q", sl.ID, id)))
		return
	}
	sl.ID = id

	result, err := ops.SaveSlide(r.Context(), h.db, h.cfg, ops.SaveSlideInput{Slide: sl})
	if err != nil {
		renderAPIError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	renderJSON(w, status, result)
}

// HandleSubmitRecord handles POST /api/slides/{id}/records.
func (h *Handlers) HandleSubmitRecord(w http.ResponseWriter, r *http.Request) {
	slideID := mux.Vars(r)["id"]

	var rec record.Record
	if err := decodeBody(w, r, maxRecordBody, &rec); err != nil {
		renderAPIError(w, err)
		return
	}
	if rec.SlideID != "" && rec.SlideID != slideID {
		renderAPIError(w, errors.NewInvalidRequest(fmt.Sprintf("body slide_id %q does not match path id %q", rec.SlideID, slideID)))
		return
	}
	rec.SlideID = slideID

	result, err := ops.SubmitRecord(r.Context(), h.db, h.cfg, ops.SubmitRecordInput{Record: rec})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleCapture handles POST /api/slides/{id}/capture: a raw input event
// log captured server-side into a record.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	slideID := mux.Vars(r)["id"]

	var input ops.CaptureInput
	if err := decodeBody(w, r, maxRecordBody, &input); err != nil {
		renderAPIError(w, err)
		return
	}
	if input.SlideID != "" && input.SlideID != slideID {
		renderAPIError(w, errors.NewInvalidRequest(fmt.Sprintf("body slide_id %q does not match path id %q", input.SlideID, slideID)))
		return
	}
	input.SlideID = slideID

	result, err := ops.CaptureEvents(r.Context(), h.db, h.cfg, input)
	if err != nil {
		renderAPIError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Saved {
		status = http.StatusOK
	}
	renderJSON(w, status, result)
}

// HandleListRecords handles GET /api/records?slide_id=..&alias=..
func (h *Handlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := ops.ListRecords(r.Context(), h.db, ops.ListRecordsInput{
		SlideIDs: q["slide_id"],
		Alias:    q.Get("alias"),
		Limit:    parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDeleteRecords handles DELETE /api/records?slide_id=..
func (h *Handlers) HandleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteRecords(r.Context(), h.db, ops.DeleteRecordsInput{SlideIDs: r.URL.Query()["slide_id"]})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleGetRecord handles GET /api/records/{id}.
func (h *Handlers) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := ops.GetRecord(r.Context(), h.db, ops.GetRecordInput{ID: mux.Vars(r)["id"]})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, rec)
}

// HandleReplay handles GET /api/records/{id}/replay.png?w=&h=. Without a
// viewport the record is drawn at its canvas size.
func (h *Handlers) HandleReplay(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ReplayRecord(r.Context(), h.db, h.cfg, ops.ReplayInput{
		RecordID: mux.Vars(r)["id"],
		Width:    parseIntParam(r, "w", 0),
		Height:   parseIntParam(r, "h", 0),
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}

	// Records are write-once but the replay style comes from config.
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PNG)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.PNG)
}

// HandleOverlay handles GET /api/records/{id}/overlay?w=&h=.
func (h *Handlers) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	result, err := ops.OverlayRecord(r.Context(), h.db, h.cfg, ops.OverlayInput{
		RecordID: mux.Vars(r)["id"],
		Width:    parseFloatParam(r, "w"),
		Height:   parseFloatParam(r, "h"),
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// decodeBody reads one JSON object from the request body into v, rejecting
// unknown fields and bodies over limit bytes.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", limit))
		}
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseFloatParam parses a float query parameter; missing or malformed
// values read as 0.
func parseFloatParam(r *http.Request, name string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
