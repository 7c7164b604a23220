package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var slideSaveToolDef = mcp.NewTool("slide_save",
	mcp.WithDescription("Create a slide or replace its definition. Element x/y are the element center in percent of the canvas. "+
		"Changing the format of a slide that already has interaction records fails with FORMAT_LOCKED."),
	mcp.WithObject("slide", mcp.Required(),
		mcp.Description("Slide: id, project_id, format (wide|square), background_url, audio_url, order_index, "+
			"elements [{id, type (text|stamp|drag|draw), x, y, width, height, image_scale, text, url, size_unit}]")),
)

var slideFetchToolDef = mcp.NewTool("slide_fetch",
	mcp.WithDescription("Fetch one slide, normalized to canvas units."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Slide id")),
)

var slideListToolDef = mcp.NewTool("slide_list",
	mcp.WithDescription("List slides in presentation order."),
	mcp.WithString("project_id", mcp.Description("Only slides of this project")),
)

var recordSubmitToolDef = mcp.NewTool("record_submit",
	mcp.WithDescription("Store a new interaction record. Coordinates are virtual-canvas units. "+
		"Malformed entries and answers for elements not on the slide are dropped."),
	mcp.WithObject("record", mcp.Required(),
		mcp.Description("Record: slide_id, participant_alias, strokes [{color, width, points [{x, y}]}], "+
			"stamps [{x, y}], text_answers {element_id: text}, drag_final [{element_id, x, y}]")),
)

var recordCaptureToolDef = mcp.NewTool("record_capture",
	mcp.WithDescription("Build a record from a raw input event log recorded in device pixels and submit it. "+
		"Events: down/move/up/leave {x, y}, resize {viewport_width, viewport_height}, tool {tool}, color {color}, "+
		"width {width}, text {element_id, value}, undo, clear. Preview assembles the record without saving."),
	mcp.WithString("slide_id", mcp.Required()),
	mcp.WithString("participant_alias", mcp.Description("Required unless preview")),
	mcp.WithNumber("viewport_width", mcp.Required()),
	mcp.WithNumber("viewport_height", mcp.Required()),
	mcp.WithArray("events", mcp.Required(), mcp.Items(map[string]any{"type": "object"})),
	mcp.WithBoolean("preview"),
)

var recordListToolDef = mcp.NewTool("record_list",
	mcp.WithDescription("List interaction records, newest first."),
	mcp.WithArray("slide_ids", stringItems, mcp.Description("Only records of these slides")),
	mcp.WithString("participant_alias", mcp.Description("Only records of this participant")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
)

var recordLatestToolDef = mcp.NewTool("record_latest",
	mcp.WithDescription("Fetch the newest record of one participant on one slide."),
	mcp.WithString("slide_id", mcp.Required()),
	mcp.WithString("participant_alias", mcp.Required()),
)

var recordResultsToolDef = mcp.NewTool("record_results",
	mcp.WithDescription("Group the records of a set of slides by participant, keeping the newest record per slide."),
	mcp.WithArray("slide_ids", mcp.Required(), stringItems),
)

var recordDeleteToolDef = mcp.NewTool("record_delete",
	mcp.WithDescription("Delete every interaction record of the given slides."),
	mcp.WithArray("slide_ids", mcp.Required(), stringItems),
)

var recordReplayToolDef = mcp.NewTool("record_replay",
	mcp.WithDescription("Render a record as a PNG for a viewport, letterboxed like the capture view."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	mcp.WithNumber("width", mcp.Description("Viewport width in pixels (default: canvas width)")),
	mcp.WithNumber("height", mcp.Description("Viewport height in pixels (default: canvas height)")),
)

var recordOverlayToolDef = mcp.NewTool("record_overlay",
	mcp.WithDescription("Map a record onto a viewport as screen-space strokes and stamps."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	mcp.WithNumber("width", mcp.Required()),
	mcp.WithNumber("height", mcp.Required()),
)

var recordExportToolDef = mcp.NewTool("record_export",
	mcp.WithDescription("Export interaction records to a JSONL file (default ~/.lamina/exports)."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path")),
	mcp.WithArray("slide_ids", stringItems),
)

var recordImportToolDef = mcp.NewTool("record_import",
	mcp.WithDescription("Import interaction records from a JSONL export or a historical interactions dump."),
	mcp.WithString("path", mcp.Required()),
	mcp.WithString("mode", mcp.Enum("error", "skip", "rename"), mcp.Description("Collision handling (default error)")),
)
