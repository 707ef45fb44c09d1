// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"fmt"
	"strings"
)

// ConflictError reports duplicate destination entries under the strict
// duplicate policy. Every offending pair is carried so callers can name
// both source files.
type ConflictError struct {
	Duplicates []Duplicate
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("found %d duplicate file(s) in content package", len(e.Duplicates))
}

// CoverageError reports source files not covered by any filter rule
// under the strict coverage policy.
type CoverageError struct {
	Files []string
}

// Error implements the error interface.
func (e *CoverageError) Error() string {
	return fmt.Sprintf("the following files are not covered by a filter rule: %s",
		strings.Join(e.Files, ", "))
}
