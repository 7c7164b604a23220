package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// RecordMaxPoints caps the total ink points of one interaction record.
	// Every pointer move is kept verbatim, so long scribbles grow quickly.
	RecordMaxPoints int `json:"record_max_points"`

	// Stamp look on replay, in virtual-canvas units.
	StampRadius       float64 `json:"stamp_radius,omitempty"`
	StampOutlineWidth float64 `json:"stamp_outline_width,omitempty"`

	// Stroke defaults for new capture sessions. Replay falls back to
	// ReplayFallbackColor/Width for strokes stored without them.
	DefaultStrokeColor  string  `json:"default_stroke_color,omitempty"`
	DefaultStrokeWidth  float64 `json:"default_stroke_width,omitempty"`
	ReplayFallbackColor string  `json:"replay_fallback_color,omitempty"`
	ReplayFallbackWidth float64 `json:"replay_fallback_width,omitempty"`

	// LegacyReferenceWidth/Height is the editor surface historical element
	// sizes (slides saved without size_unit) were authored against.
	LegacyReferenceWidth  float64 `json:"legacy_reference_width,omitempty"`
	LegacyReferenceHeight float64 `json:"legacy_reference_height,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.lamina/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// When true, any directory is allowed (but symlink and extension checks still apply).
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every MCP tool of a type.
	// Known types: "slide", "record". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// WebBind and WebPort are the listen address of `lamina serve`.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RecordMaxPoints:       200000,
		StampRadius:           30,
		StampOutlineWidth:     5,
		DefaultStrokeColor:    "#ef4444",
		DefaultStrokeWidth:    8,
		ReplayFallbackColor:   "#ffffff",
		ReplayFallbackWidth:   5,
		LegacyReferenceWidth:  900,
		LegacyReferenceHeight: 506,
		LogLevel:              "warn",
		WebBind:               "127.0.0.1",
		WebPort:               8745,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lamina.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.lamina) and repo (.lamina) directories.
// Repo config is found by walking upward from startDir to find the nearest .lamina/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .lamina/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".lamina", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.RecordMaxPoints = pick(overlay.RecordMaxPoints, base.RecordMaxPoints)
	result.StampRadius = pick(overlay.StampRadius, base.StampRadius)
	result.StampOutlineWidth = pick(overlay.StampOutlineWidth, base.StampOutlineWidth)
	result.DefaultStrokeColor = pick(overlay.DefaultStrokeColor, base.DefaultStrokeColor)
	result.DefaultStrokeWidth = pick(overlay.DefaultStrokeWidth, base.DefaultStrokeWidth)
	result.ReplayFallbackColor = pick(overlay.ReplayFallbackColor, base.ReplayFallbackColor)
	result.ReplayFallbackWidth = pick(overlay.ReplayFallbackWidth, base.ReplayFallbackWidth)
	result.LegacyReferenceWidth = pick(overlay.LegacyReferenceWidth, base.LegacyReferenceWidth)
	result.LegacyReferenceHeight = pick(overlay.LegacyReferenceHeight, base.LegacyReferenceHeight)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.LogLevel = pick(strings.TrimSpace(overlay.LogLevel), base.LogLevel)
	result.WebBind = pick(strings.TrimSpace(overlay.WebBind), base.WebBind)
	result.WebPort = pick(overlay.WebPort, base.WebPort)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
