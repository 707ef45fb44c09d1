// SPDX-License-Identifier: MPL-2.0

// Package scan enumerates files below a directory using glob-based
// include and exclude patterns.
//
// Patterns are doublestar-compatible globs (e.g. "**/*.xml") matched
// against slash-normalized paths relative to the scanned directory.
// A built-in default exclude set covers VCS metadata, OS artifacts and
// editor droppings; callers can merge additional excludes or disable
// the defaults entirely. Results are sorted lexically so repeated scans
// of the same tree yield identical output on every platform.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludes lists path patterns that are excluded from scans unless
// the caller opts out. These cover VCS metadata directories, OS metadata
// files and temporary editor files that must never end up in a package.
var defaultExcludes = []string{
	"**/.git",
	"**/.git/**",
	"**/.gitignore",
	"**/.gitattributes",
	"**/.gitmodules",
	"**/.svn",
	"**/.svn/**",
	"**/.hg",
	"**/.hg/**",
	"**/.bzr",
	"**/.bzr/**",
	"**/CVS",
	"**/CVS/**",
	"**/.DS_Store",
	"**/._*",
	"**/Thumbs.db",
	"**/*~",
	"**/#*#",
	"**/.#*",
	"**/%*%",
}

// Options holds the parameters for a single scan.
type Options struct {
	// Includes selects which files are returned. An empty slice selects
	// all files not excluded.
	Includes []string

	// Excludes removes files from the result set. Applied after
	// includes; an excluded file is dropped even if an include pattern
	// matched it.
	Excludes []string

	// UseDefaultExcludes merges the built-in default exclude set with
	// Excludes. Callers that need VCS metadata in the result set this
	// to false.
	UseDefaultExcludes bool
}

// DefaultExcludes returns a copy of the built-in exclude patterns.
func DefaultExcludes() []string {
	out := make([]string, len(defaultExcludes))
	copy(out, defaultExcludes)
	return out
}

// Files returns the relative slash paths of all regular files below dir
// that survive the include/exclude patterns, in lexical order.
//
// A missing dir yields an empty result, not an error: source trees are
// optional inputs and their absence simply contributes no files.
// Symbolic links are never followed; a symlinked directory is skipped
// entirely and a symlinked file is not reported.
func Files(dir string, opts Options) ([]string, error) {
	if err := validatePatterns(opts.Includes, "include"); err != nil {
		return nil, err
	}
	if err := validatePatterns(opts.Excludes, "exclude"); err != nil {
		return nil, err
	}

	info, err := os.Lstat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan: %q is not a directory", dir)
	}

	excludes := opts.Excludes
	if opts.UseDefaultExcludes {
		merged := make([]string, 0, len(defaultExcludes)+len(excludes))
		merged = append(merged, defaultExcludes...)
		merged = append(merged, excludes...)
		excludes = merged
	}

	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scan: walk %q: %w", path, err)
		}
		if path == dir {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return fmt.Errorf("scan: relativize %q: %w", path, relErr)
		}
		normalized := filepath.ToSlash(rel)

		if d.IsDir() {
			// Prune excluded directories so the walk never descends
			// into them.
			if matchesAny(excludes, normalized) || matchesAny(excludes, normalized+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		// WalkDir does not follow symlinks, but symlinked files still
		// appear as entries; drop them so the archive cannot reference
		// content outside the scanned tree.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if len(opts.Includes) > 0 && !matchesAny(opts.Includes, normalized) {
			return nil
		}
		if matchesAny(excludes, normalized) {
			return nil
		}

		files = append(files, normalized)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(files)
	return files, nil
}

// EmptyDirs returns the relative slash paths of all directories below
// dir that contain no entries at all, in lexical order, honoring the
// same exclude semantics as Files. The archive writer uses this to
// preserve empty directories in directory filesets.
func EmptyDirs(dir string, opts Options) ([]string, error) {
	if err := validatePatterns(opts.Excludes, "exclude"); err != nil {
		return nil, err
	}

	if _, err := os.Lstat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: stat %q: %w", dir, err)
	}

	excludes := opts.Excludes
	if opts.UseDefaultExcludes {
		merged := make([]string, 0, len(defaultExcludes)+len(excludes))
		merged = append(merged, defaultExcludes...)
		merged = append(merged, excludes...)
		excludes = merged
	}

	var dirs []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scan: walk %q: %w", path, err)
		}
		if path == dir || !d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return filepath.SkipDir
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return fmt.Errorf("scan: relativize %q: %w", path, relErr)
		}
		normalized := filepath.ToSlash(rel)

		if matchesAny(excludes, normalized) || matchesAny(excludes, normalized+"/") {
			return filepath.SkipDir
		}

		entries, readErr := os.ReadDir(path)
		if readErr != nil {
			return fmt.Errorf("scan: read %q: %w", path, readErr)
		}
		if len(entries) == 0 {
			dirs = append(dirs, normalized)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(dirs)
	return dirs, nil
}

// matchesAny reports whether normalized matches at least one pattern.
// Invalid patterns were rejected up front, so match errors cannot occur
// here and are treated as non-matches.
func matchesAny(patterns []string, normalized string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// validatePatterns checks that every pattern in the slice is a valid
// doublestar glob, so invalid globs fail the scan eagerly instead of
// silently matching nothing.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return fmt.Errorf("scan: invalid %s pattern %q: %w", label, pat, err)
		}
	}
	return nil
}
