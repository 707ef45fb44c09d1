// SPDX-License-Identifier: MPL-2.0

// Package filtering implements token substitution for package resources.
//
// When filtering is enabled for a destination prefix, each resource is
// copied to a working location with expression tokens replaced by
// property values before it is archived. Two delimiter styles are
// recognized by default, "${token}" and "@token@", and additional
// styles can be configured in "begin*end" form. Expressions preceded
// by the configured escape string are emitted literally with the
// escape removed.
//
// Known binary formats are never filtered; their files pass through
// untouched.
package filtering

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultBinaryExtensions are file extensions that are never filtered,
// since token substitution would corrupt their content.
var defaultBinaryExtensions = []string{"jpg", "jpeg", "gif", "bmp", "png"}

// Delimiter is one expression delimiter pair.
type Delimiter struct {
	Begin string
	End   string
}

// DefaultDelimiters returns the built-in delimiter pairs: "${*}" and
// "@*@".
func DefaultDelimiters() []Delimiter {
	return []Delimiter{
		{Begin: "${", End: "}"},
		{Begin: "@", End: "@"},
	}
}

// ParseDelimiter parses a delimiter spec in "begin*end" form. A spec
// without "*" uses the same token on both ends.
func ParseDelimiter(spec string) (Delimiter, error) {
	if spec == "" {
		return Delimiter{}, fmt.Errorf("filtering: empty delimiter spec")
	}
	begin, end, found := strings.Cut(spec, "*")
	if !found {
		return Delimiter{Begin: spec, End: spec}, nil
	}
	if begin == "" || end == "" {
		return Delimiter{}, fmt.Errorf("filtering: invalid delimiter spec %q", spec)
	}
	return Delimiter{Begin: begin, End: end}, nil
}

// Filterer produces a filtered copy of a source file. Implementations
// return the path of the file to archive; returning src unchanged means
// the file needs no filtering.
type Filterer interface {
	FilterFile(src, dest string) (string, error)
}

// TokenFilterer is the default Filterer: property-map substitution with
// configurable delimiters, writing filtered copies below WorkDir.
type TokenFilterer struct {
	// Properties maps token names to replacement values.
	Properties map[string]string

	// Delimiters are the recognized expression delimiters. Empty means
	// DefaultDelimiters.
	Delimiters []Delimiter

	// EscapeString, when non-empty, marks expressions that must not be
	// interpolated; the escape itself is removed from the output.
	EscapeString string

	// ExtraBinaryExtensions extends the built-in list of extensions
	// that are never filtered.
	ExtraBinaryExtensions []string

	// WorkDir is where filtered copies are written, one subdirectory
	// per destination path.
	WorkDir string
}

// FilterFile substitutes tokens in src and returns the path of the
// filtered copy. Binary files are returned unchanged.
func (t *TokenFilterer) FilterFile(src, dest string) (string, error) {
	if t.isBinary(src) {
		return src, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("filtering: read %q: %w", src, err)
	}

	filtered := t.substitute(string(data))

	outDir := filepath.Join(t.WorkDir, filepath.FromSlash(filepath.ToSlash(filepath.Dir(dest))))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("filtering: create %q: %w", outDir, err)
	}
	out := filepath.Join(outDir, filepath.Base(src))
	if err := os.WriteFile(out, []byte(filtered), 0644); err != nil {
		return "", fmt.Errorf("filtering: write %q: %w", out, err)
	}
	return out, nil
}

// isBinary reports whether src carries an extension that is never
// filtered.
func (t *TokenFilterer) isBinary(src string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(src)), ".")
	for _, e := range defaultBinaryExtensions {
		if ext == e {
			return true
		}
	}
	for _, e := range t.ExtraBinaryExtensions {
		if ext == strings.ToLower(strings.TrimPrefix(e, ".")) {
			return true
		}
	}
	return false
}

// substitute replaces every delimited token whose name is present in
// the property map. Unknown tokens are left intact, matching the
// behavior users expect from resource interpolation.
func (t *TokenFilterer) substitute(content string) string {
	delims := t.Delimiters
	if len(delims) == 0 {
		delims = DefaultDelimiters()
	}

	var b strings.Builder
	b.Grow(len(content))

	for i := 0; i < len(content); {
		// Escaped expression: emit the expression literally, without
		// the escape string.
		if t.EscapeString != "" && strings.HasPrefix(content[i:], t.EscapeString) {
			after := i + len(t.EscapeString)
			if _, _, end, ok := matchToken(content[after:], delims); ok {
				b.WriteString(content[after : after+end])
				i = after + end
				continue
			}
		}

		if d, name, end, ok := matchToken(content[i:], delims); ok {
			if value, known := t.Properties[name]; known {
				b.WriteString(value)
				i += end
				continue
			}
			// Unknown token: copy the full expression through.
			b.WriteString(content[i : i+len(d.Begin)])
			i += len(d.Begin)
			continue
		}

		b.WriteByte(content[i])
		i++
	}
	return b.String()
}

// matchToken tries each delimiter at the start of s. On a match it
// returns the delimiter, the token name, and the offset just past the
// closing delimiter.
func matchToken(s string, delims []Delimiter) (Delimiter, string, int, bool) {
	for _, d := range delims {
		if !strings.HasPrefix(s, d.Begin) {
			continue
		}
		rest := s[len(d.Begin):]
		idx := strings.Index(rest, d.End)
		if idx <= 0 {
			continue
		}
		name := rest[:idx]
		// Token names never span lines or contain another opening
		// delimiter.
		if strings.ContainsAny(name, "\n\r") || strings.Contains(name, d.Begin) {
			continue
		}
		return d, name, len(d.Begin) + idx + len(d.End), true
	}
	return Delimiter{}, "", 0, false
}
