package mcp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/ops"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/slide"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// SlideSaveRequest represents the arguments for slide_save.
type SlideSaveRequest struct {
	Slide *slide.Slide `json:"slide"`
}

// SlideFetchRequest represents the arguments for slide_fetch.
type SlideFetchRequest struct {
	ID string `json:"id"`
}

// SlideListRequest represents the arguments for slide_list.
type SlideListRequest struct {
	ProjectID string `json:"project_id,omitempty"`
}

// RecordSubmitRequest represents the arguments for record_submit.
type RecordSubmitRequest struct {
	Record *record.Record `json:"record"`
}

// RecordCaptureRequest represents the arguments for record_capture.
type RecordCaptureRequest ops.CaptureInput

// RecordListRequest represents the arguments for record_list.
type RecordListRequest struct {
	SlideIDs         []string `json:"slide_ids,omitempty"`
	ParticipantAlias string   `json:"participant_alias,omitempty"`
	Limit            int      `json:"limit,omitempty"`
	Offset           int      `json:"offset,omitempty"`
}

// RecordLatestRequest represents the arguments for record_latest.
type RecordLatestRequest struct {
	SlideID          string `json:"slide_id"`
	ParticipantAlias string `json:"participant_alias"`
}

// SlideIDsRequest represents the arguments for record_results and record_delete.
type SlideIDsRequest struct {
	SlideIDs []string `json:"slide_ids"`
}

// ViewportRequest represents the arguments for record_replay and record_overlay.
type ViewportRequest struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// ExportRequest represents the arguments for record_export.
type ExportRequest struct {
	Path     string   `json:"path,omitempty"`
	SlideIDs []string `json:"slide_ids,omitempty"`
}

// ImportRequest represents the arguments for record_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleSlideSave handles the slide_save tool call.
func (h *Handlers) HandleSlideSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlideSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Slide == nil {
		return errorResult(errors.NewInvalidRequest("slide is required")), nil
	}

	result, err := ops.SaveSlide(ctx, h.db, h.cfg, ops.SaveSlideInput{Slide: *input.Slide})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSlideFetch handles the slide_fetch tool call.
func (h *Handlers) HandleSlideFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlideFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LoadSlide(ctx, h.db, h.cfg, ops.LoadSlideInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSlideList handles the slide_list tool call.
func (h *Handlers) HandleSlideList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlideListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListSlides(ctx, h.db, h.cfg, ops.ListSlidesInput{ProjectID: input.ProjectID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordSubmit handles the record_submit tool call.
func (h *Handlers) HandleRecordSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordSubmitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Record == nil {
		return errorResult(errors.NewInvalidRequest("record is required")), nil
	}

	result, err := ops.SubmitRecord(ctx, h.db, h.cfg, ops.SubmitRecordInput{Record: *input.Record})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordCapture handles the record_capture tool call.
func (h *Handlers) HandleRecordCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordCaptureRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CaptureEvents(ctx, h.db, h.cfg, ops.CaptureInput(input))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordList handles the record_list tool call.
func (h *Handlers) HandleRecordList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListRecords(ctx, h.db, ops.ListRecordsInput{
		SlideIDs: input.SlideIDs,
		Alias:    input.ParticipantAlias,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordLatest handles the record_latest tool call.
func (h *Handlers) HandleRecordLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordLatestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LatestRecord(ctx, h.db, ops.LatestRecordInput{SlideID: input.SlideID, Alias: input.ParticipantAlias})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordResults handles the record_results tool call.
func (h *Handlers) HandleRecordResults(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlideIDsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ResultsByParticipant(ctx, h.db, ops.ResultsInput{SlideIDs: input.SlideIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordDelete handles the record_delete tool call.
func (h *Handlers) HandleRecordDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SlideIDsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteRecords(ctx, h.db, ops.DeleteRecordsInput{SlideIDs: input.SlideIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordReplay handles the record_replay tool call. The result holds
// the replay metadata as JSON text followed by the PNG image.
func (h *Handlers) HandleRecordReplay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ViewportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ReplayRecord(ctx, h.db, h.cfg, ops.ReplayInput{
		RecordID: input.ID,
		Width:    int(input.Width),
		Height:   int(input.Height),
	})
	if err != nil {
		return errorResult(err), nil
	}

	meta, err := json.Marshal(result)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(meta)),
			mcp.NewImageContent(base64.StdEncoding.EncodeToString(result.PNG), "image/png"),
		},
	}, nil
}

// HandleRecordOverlay handles the record_overlay tool call.
func (h *Handlers) HandleRecordOverlay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ViewportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.OverlayRecord(ctx, h.db, h.cfg, ops.OverlayInput{
		RecordID: input.ID,
		Width:    input.Width,
		Height:   input.Height,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordExport handles the record_export tool call.
func (h *Handlers) HandleRecordExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ExportRecords(ctx, h.db, h.cfg, ops.ExportInput{Path: input.Path, SlideIDs: input.SlideIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordImport handles the record_import tool call.
func (h *Handlers) HandleRecordImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ImportRecords(ctx, h.db, h.cfg, ops.ImportInput{Path: input.Path, Mode: ops.ImportMode(input.Mode)})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed to clients.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}
	if lErr, ok := errors.As(err); ok && lErr.Code != errors.ErrInternal {
		// keep wrapping context such as "slide_ids[2]: "
		prefix := strings.TrimSuffix(err.Error(), lErr.Error())
		errorObj["code"] = lErr.Code
		errorObj["message"] = prefix + lErr.Message
		errorObj["status"] = lErr.Status
		if lErr.Details != nil {
			errorObj["details"] = lErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(content))},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
