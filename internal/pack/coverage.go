// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"path/filepath"

	"vaultpack/internal/scan"
	"vaultpack/pkg/zippath"
)

// Uncovered returns the absolute paths of source files below sourceDir
// whose destination is not present in covered. It scans with the same
// exclude patterns used for inclusion, so every file the scan yields is
// one the package was supposed to account for; the complement is
// exactly the set no filter rule claimed.
func Uncovered(sourceDir string, excludes []string, useDefaultExcludes bool, destPrefix string, covered map[string]string) ([]string, error) {
	files, err := scan.Files(sourceDir, scan.Options{
		Excludes:           excludes,
		UseDefaultExcludes: useDefaultExcludes,
	})
	if err != nil {
		return nil, err
	}

	var uncovered []string
	for _, rel := range files {
		dest := zippath.Join(destPrefix, rel)
		if _, ok := covered[dest]; !ok {
			uncovered = append(uncovered, filepath.Join(sourceDir, filepath.FromSlash(rel)))
		}
	}
	return uncovered, nil
}
