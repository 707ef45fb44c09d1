// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"os"
	"path/filepath"
	"strings"

	"vaultpack/pkg/zippath"
)

// SingleFile is one explicit (source file, destination path) inclusion.
type SingleFile struct {
	Source string
	Dest   string
}

// AncestorEntries walks from startDir up to and including sourceRoot,
// collecting each level's companion .content.xml (when present) at the
// corresponding destination path. Hierarchical content formats require
// every ancestor node between an included subtree and the root to be
// structurally present, even when no filter rule selects it.
//
// The walk terminates as soon as the candidate directory no longer has
// sourceRoot as a string prefix, which bounds it even for malformed
// inputs. Levels without a companion file contribute nothing; a
// non-existent startDir simply yields entries from its first existing
// ancestor onward.
func AncestorEntries(startDir, sourceRoot, destPath string) []SingleFile {
	dir := filepath.Clean(startDir)
	root := filepath.Clean(sourceRoot)
	dest := destPath

	var out []SingleFile
	for strings.HasPrefix(dir, root) {
		companion := filepath.Join(dir, DotContentXML)
		if info, err := os.Stat(companion); err == nil && info.Mode().IsRegular() {
			out = append(out, SingleFile{
				Source: companion,
				Dest:   zippath.Join(dest, DotContentXML),
			})
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Filesystem root; nothing further up.
			break
		}
		dir = parent
		dest = zippath.Chomp(dest)
	}
	return out
}
