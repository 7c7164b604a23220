// Package canvas defines the fixed-resolution virtual canvas every slide is
// authored and captured in, and the viewport fitting that maps it onto a
// device screen.
//
// All persisted coordinates (ink points, stamps, drag positions) are in
// virtual-canvas units. Device pixels never leave this package's Stage
// conversions.
package canvas

import (
	"strings"

	"github.com/hpungsan/lamina/internal/logging"
)

// Format is a slide's declared aspect preset.
type Format string

const (
	FormatWide   Format = "wide"   // 1920x1080
	FormatSquare Format = "square" // 1080x1080
)

// DefaultFormat is used when a slide carries no format or an unknown one.
const DefaultFormat = FormatWide

// Resolution is an immutable virtual canvas size in canvas units.
type Resolution struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var (
	Wide   = Resolution{Width: 1920, Height: 1080}
	Square = Resolution{Width: 1080, Height: 1080}
)

// AspectRatio returns width / height.
func (r Resolution) AspectRatio() float64 {
	if r.Height == 0 {
		return 0
	}
	return r.Width / r.Height
}

// Valid reports whether r is one of the two presets.
func (r Resolution) Valid() bool {
	return r == Wide || r == Square
}

// Format returns the preset name for r, or "" if r is not a preset.
func (r Resolution) Format() Format {
	switch r {
	case Wide:
		return FormatWide
	case Square:
		return FormatSquare
	}
	return ""
}

// ParseFormat normalizes a format tag. Besides the canonical names it
// accepts the ratio spellings historical slides were stored with
// ("16/9", "1/1"). ok is false for anything else.
func ParseFormat(s string) (f Format, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wide", "16/9", "16:9":
		return FormatWide, true
	case "square", "1/1", "1:1":
		return FormatSquare, true
	}
	return "", false
}

// ResolutionFor returns the virtual canvas for a format tag.
// It is total: an empty or unknown tag falls back to the wide canvas, since
// slides created before format tagging have no tag at all.
func ResolutionFor(format string) Resolution {
	f, ok := ParseFormat(format)
	if !ok {
		if format != "" {
			logging.Logger().Warn("unknown slide format, using wide canvas", "format", format)
		}
		f = DefaultFormat
	}
	if f == FormatSquare {
		return Square
	}
	return Wide
}
