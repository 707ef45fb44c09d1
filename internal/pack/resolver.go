// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"os"
	"path/filepath"

	"vaultpack/internal/archive"
	"vaultpack/pkg/zippath"
)

// Inclusion is one resolved contribution of a filter rule: either a
// single file or a directory fileset, plus the ancestor closure entries
// that keep the included node reachable from the root.
type Inclusion struct {
	// File is set for a full-coverage aggregate inclusion.
	File *SingleFile

	// Set is set for a directory inclusion.
	Set *archive.FileSet

	// Ancestors are the companion metadata files of every directory
	// between the inclusion and the source root.
	Ancestors []SingleFile
}

// ResolveOptions parameterizes rule resolution.
type ResolveOptions struct {
	// SourceRoot is the root of the content source tree.
	SourceRoot string

	// DestPrefix is the destination prefix the whole tree maps under,
	// typically "jcr_root".
	DestPrefix string

	// Excludes and UseDefaultExcludes are passed through to directory
	// filesets.
	Excludes           []string
	UseDefaultExcludes bool

	// Embedded is the set of destination paths already claimed by
	// embedded files. A rule whose destination is embedded contributes
	// nothing; the embedded file takes precedence and was added
	// earlier.
	Embedded map[string]string
}

// Resolve maps the ordered filter roots to concrete inclusions.
//
// Per root, in declaration order: a sibling full-coverage aggregate
// ("<root>.xml") wins and is included as a single file; otherwise an
// existing directory is included as a fileset; otherwise the walk trims
// trailing segments until an existing directory short of the source
// root is found. A root entirely absent from the tree silently
// contributes nothing; there is nothing to package for it.
//
// With no roots declared at all, the whole source tree is included as
// one fileset below DestPrefix.
func Resolve(roots []string, opts ResolveOptions) []Inclusion {
	if len(roots) == 0 {
		return []Inclusion{{
			Set: &archive.FileSet{
				Dir:                opts.SourceRoot,
				Prefix:             opts.DestPrefix + "/",
				Excludes:           opts.Excludes,
				UseDefaultExcludes: opts.UseDefaultExcludes,
				IncludeEmptyDirs:   true,
			},
		}}
	}

	// Embedded targets may be written in a non-canonical form; compare
	// them the way the tracker records them.
	embedded := make(map[string]bool, len(opts.Embedded))
	for dest := range opts.Embedded {
		embedded[zippath.Normalize(dest)] = true
	}

	var incs []Inclusion
	for _, root := range roots {
		relPath := zippath.Platform(root)
		destPath := zippath.Join(opts.DestPrefix, relPath)

		// Embedded files have been added already and take precedence.
		if embedded[destPath] {
			continue
		}

		// Full-coverage aggregate: a sibling "<node>.xml" wholly
		// describes the subtree, so the subtree's individual files
		// are not included.
		aggregate := filepath.Join(opts.SourceRoot, filepath.FromSlash(relPath)+".xml")
		if info, err := os.Stat(aggregate); err == nil && info.Mode().IsRegular() {
			incs = append(incs, Inclusion{
				File: &SingleFile{Source: aggregate, Dest: destPath + ".xml"},
				// The aggregate subsumes its own node; closure starts
				// at the parent level.
				Ancestors: AncestorEntries(
					filepath.Dir(aggregate), opts.SourceRoot, zippath.Chomp(destPath)),
			})
			continue
		}

		// Walk upward until an existing directory is found, trimming
		// the destination in step. Reaching the source root means the
		// rule covers nothing present in this tree.
		dir := filepath.Join(opts.SourceRoot, filepath.FromSlash(relPath))
		sourceRoot := filepath.Clean(opts.SourceRoot)
		for !isDir(dir) && dir != sourceRoot {
			dir = filepath.Dir(dir)
			relPath = zippath.Chomp(relPath)
		}
		if dir == sourceRoot {
			continue
		}

		destPath = zippath.Join(opts.DestPrefix, relPath)
		incs = append(incs, Inclusion{
			Set: &archive.FileSet{
				Dir:                dir,
				Prefix:             destPath + "/",
				Excludes:           opts.Excludes,
				UseDefaultExcludes: opts.UseDefaultExcludes,
				IncludeEmptyDirs:   true,
			},
			Ancestors: AncestorEntries(dir, opts.SourceRoot, destPath),
		})
	}
	return incs
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
