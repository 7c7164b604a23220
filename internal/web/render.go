package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/logging"
	"github.com/hpungsan/lamina/internal/slide"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "slides", "results"
}

// SlidesPageData is the template data for the slide list page.
type SlidesPageData struct {
	PageData
	ProjectID string
	Items     []*slide.Slide
}

// Prompt is one text element shown as a column on the results page.
type Prompt struct {
	ElementID string
	HTML      template.HTML
}

// ParticipantRow is one participant's latest submission on a slide.
type ParticipantRow struct {
	Alias       string
	RecordID    string
	Submissions int
	CreatedAt   int64
	Strokes     int
	Points      int
	Stamps      int
	Drags       int
	Answers     []Answer
}

// Answer is a participant's text answer next to its prompt.
type Answer struct {
	Prompt template.HTML
	HTML   template.HTML
}

// ResultsPageData is the template data for the per-slide results page.
type ResultsPageData struct {
	PageData
	Slide        *slide.Slide
	Prompts      []Prompt
	Participants []ParticipantRow
	ThumbWidth   int
	ThumbHeight  int
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"formatCount": formatCount,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"slides":  "slides.html",
		"results": "results.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		logging.Logger().Error("template not found", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.Logger().Error("template execution error", "name", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	lErr := toLaminaError(err)

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeAPIError(w, lErr)
		return
	}

	// Full error page
	r.renderPageStatus(w, lErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", lErr.Status),
			Version: r.version,
		},
		StatusCode: lErr.Status,
		Message:    lErr.Message,
	})
}

// toLaminaError maps any error to a LaminaError, logging internal causes.
func toLaminaError(err error) *errors.LaminaError {
	lErr, ok := errors.As(err)
	if !ok {
		lErr = errors.NewInternal(err)
	}
	if lErr.Code == errors.ErrInternal {
		logging.Logger().Error("request failed", "err", err)
	}
	return lErr
}

// renderAPIError writes the JSON error envelope. Details of internal errors
// stay on the server.
func renderAPIError(w http.ResponseWriter, err error) {
	writeAPIError(w, toLaminaError(err))
}

func writeAPIError(w http.ResponseWriter, lErr *errors.LaminaError) {
	body := map[string]any{
		"code":    string(lErr.Code),
		"message": lErr.Message,
		"status":  lErr.Status,
	}
	if lErr.Code != errors.ErrInternal && lErr.Details != nil {
		body["details"] = lErr.Details
	}
	renderJSON(w, lErr.Status, map[string]any{"error": body})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark. Raw HTML in
// the source is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatCount formats an integer with comma thousands separators.
func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
