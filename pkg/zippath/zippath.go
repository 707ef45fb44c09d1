// SPDX-License-Identifier: MPL-2.0

// Package zippath provides helpers for archive destination paths.
//
// Destination paths inside a content package always use forward slashes,
// regardless of the host platform, and never carry a leading separator.
// Each helper centralizes one of the small normalization rules the
// assembly engine relies on, so path handling stays consistent between
// the rule resolver, the duplicate tracker, and the archive writer.
package zippath

import (
	"path"
	"strings"
)

// Normalize converts p to canonical archive form: backslashes become
// forward slashes, redundant separators and "." segments are collapsed,
// and a single trailing separator is dropped. The empty string stays
// empty.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	n := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if n == "." {
		return ""
	}
	return n
}

// Join concatenates path elements with forward slashes and normalizes
// the result. Empty elements are skipped.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return Normalize(strings.Join(parts, "/"))
}

// Chomp removes the last separator-delimited segment from p, including
// the separator itself. A path without a separator is returned
// unchanged, so repeated chomping converges on the top-level segment.
func Chomp(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[:idx]
}

// HasPrefix reports whether p lies under prefix in segment terms:
// either p equals prefix, or p starts with prefix followed by a
// separator. An empty prefix contains every path.
func HasPrefix(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// Platform maps a repository path from a filter rule (e.g. "/apps/site")
// to the relative slash form used to address the same node below the
// source tree ("apps/site").
func Platform(repoPath string) string {
	return strings.TrimPrefix(Normalize(repoPath), "/")
}
