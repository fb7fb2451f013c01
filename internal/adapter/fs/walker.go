package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker expands dataset path patterns into concrete files.
type Walker struct {
	excludes []string
}

func NewWalker(excludes []string) *Walker {
	return &Walker{excludes: excludes}
}

// IsPattern reports whether path contains glob metacharacters.
func IsPattern(path string) bool {
	for _, r := range path {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// Expand resolves a plain path or a doublestar pattern (e.g. data/**/*.csv)
// into regular files in lexical order.
func (w *Walker) Expand(pattern string) ([]string, error) {
	if !IsPattern(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return w.Expand(filepath.Join(pattern, "*.csv"))
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	// Excludes are matched relative to the non-pattern prefix.
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))

	var files []string
	for _, path := range matches {
		rel, err := filepath.Rel(filepath.FromSlash(base), path)
		if err != nil {
			rel = path
		}
		if w.shouldExclude(filepath.ToSlash(rel)) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	return files, nil
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
