package ops

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/replay"
	"github.com/hpungsan/lamina/internal/slide"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxIDLength      = 128
	MaxSlideIDs      = 200
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// normalizeLimit applies the default and the cap to a requested page size.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// requireID trims an identifier and rejects empty or oversized values.
func requireID(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	if len(v) > MaxIDLength {
		return "", errors.NewInvalidRequest(field + " is too long")
	}
	return v, nil
}

// cleanSlideIDs trims and deduplicates a slide id list, keeping order.
func cleanSlideIDs(ids []string) ([]string, error) {
	if len(ids) > MaxSlideIDs {
		return nil, errors.NewInvalidRequest("too many slide_ids")
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if len(id) > MaxIDLength {
			return nil, errors.NewInvalidRequest("slide_id is too long")
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newULID generates a new ULID. IDs generated within the same millisecond
// sort in generation order.
func newULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// legacyReference returns the editor surface configured for migrating
// historical element sizes.
func legacyReference(cfg *config.Config) slide.LegacyReference {
	ref := slide.DefaultLegacyReference()
	if cfg == nil {
		return ref
	}
	if cfg.LegacyReferenceWidth > 0 && cfg.LegacyReferenceHeight > 0 {
		ref = slide.LegacyReference{Width: cfg.LegacyReferenceWidth, Height: cfg.LegacyReferenceHeight}
	}
	return ref
}

// ReplayStyle returns the replay style with configured overrides applied.
func ReplayStyle(cfg *config.Config) replay.Style {
	style := replay.DefaultStyle()
	if cfg == nil {
		return style
	}
	if cfg.StampRadius > 0 {
		style.StampRadius = cfg.StampRadius
	}
	if cfg.StampOutlineWidth > 0 {
		style.StampOutlineWidth = cfg.StampOutlineWidth
	}
	if cfg.ReplayFallbackColor != "" {
		style.FallbackColor = cfg.ReplayFallbackColor
	}
	if cfg.ReplayFallbackWidth > 0 {
		style.FallbackWidth = cfg.ReplayFallbackWidth
	}
	return style
}
