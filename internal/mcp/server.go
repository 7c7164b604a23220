package mcp

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/logging"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"slide", "record"}

type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

func tool(def mcp.Tool, handler func(*Handlers) server.ToolHandlerFunc) toolEntry {
	return toolEntry{def: def, handler: handler}
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = func() map[string]toolEntry {
	entries := []toolEntry{
		tool(slideSaveToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSlideSave }),
		tool(slideFetchToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSlideFetch }),
		tool(slideListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSlideList }),
		tool(recordSubmitToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordSubmit }),
		tool(recordCaptureToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordCapture }),
		tool(recordListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordList }),
		tool(recordLatestToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordLatest }),
		tool(recordResultsToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordResults }),
		tool(recordDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordDelete }),
		tool(recordReplayToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordReplay }),
		tool(recordOverlayToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordOverlay }),
		tool(recordExportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordExport }),
		tool(recordImportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordImport }),
	}
	m := make(map[string]toolEntry, len(entries))
	for _, e := range entries {
		m[e.def.Name] = e
	}
	return m
}()

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "record_submit" → "record").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the lamina tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lamina",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		logging.Logger().Warn("unknown tool in disabled_tools", "tool", name)
	}
	for _, name := range ValidateDisabledTypes(cfg.DisabledTypes) {
		logging.Logger().Warn("unknown type in disabled_types", "type", name)
	}

	registered := 0
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
		registered++
	}
	logging.Logger().Debug("mcp tools registered", "count", registered, "disabled", len(disabled))

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(db, cfg, version)
	return server.ServeStdio(s)
}
