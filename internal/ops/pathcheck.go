package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ExportExt is the only file extension accepted for import and export.
const ExportExt = ".jsonl"

// pathPolicy is the import/export directory policy derived from config.
type pathPolicy struct {
	unrestricted bool
	dirs         []string // absolute, symlinks resolved
}

func newPathPolicy(cfg *config.Config) (*pathPolicy, error) {
	p := &pathPolicy{}
	if cfg != nil && cfg.AllowUnsafePaths {
		p.unrestricted = true
		return p, nil
	}

	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, d := range cfg.AllowedPaths {
			// relative entries would depend on the working directory
			if filepath.IsAbs(d) {
				candidates = append(candidates, d)
			}
		}
	}

	for _, d := range candidates {
		d = filepath.Clean(d)
		if isSymlink(d) {
			resolved, err := filepath.EvalSymlinks(d)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", d, err))
			}
			d = resolved
		}
		p.dirs = append(p.dirs, d)
	}
	return p, nil
}

// permits reports whether a file in dir may be read or written. The file
// must sit directly in an allowed directory: nested directories could be
// swapped for symlinks between the check and the open.
func (p *pathPolicy) permits(dir string) bool {
	if p.unrestricted {
		return true
	}
	dir = filepath.Clean(dir)
	for _, d := range p.dirs {
		if dir == d {
			return true
		}
	}
	return false
}

// ValidatePath checks an import or export path: no ".." components, the
// .jsonl extension, the directory policy, and no symlinks for the file or
// its parent. AllowUnsafePaths lifts only the directory policy.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ExportExt {
		return errors.NewInvalidRequest("path must have " + ExportExt + " extension")
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	policy, err := newPathPolicy(cfg)
	if err != nil {
		return err
	}
	parent := filepath.Dir(abs)
	if !policy.permits(parent) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"file must be directly in an allowed directory (no subdirectories); allowed: %v", policy.dirs))
	}
	if !policy.unrestricted && isSymlink(parent) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// DefaultExportsDir returns the default exports directory (~/.lamina/exports).
func DefaultExportsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".lamina", "exports"), nil
}

// containsTraversal reports whether any path component is "..". Forward
// slashes are treated as separators on every platform.
func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	for _, part := range strings.FieldsFunc(path, split) {
		if part == ".." {
			return true
		}
	}
	return false
}

// SanitizeForFilename turns a caller-supplied string into a safe file name
// stem: separators and ".." become dashes, control characters are removed,
// dash runs collapse, and an empty result becomes "unnamed".
func SanitizeForFilename(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
