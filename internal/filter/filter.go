// SPDX-License-Identifier: MPL-2.0

// Package filter models the workspace filter document that drives
// package assembly.
//
// The document is the conventional META-INF/vault/filter.xml: an
// ordered list of filter elements, each declaring a repository root
// that maps into the package. Order is significant — the resolver
// processes roots in declaration order — so the parsed representation
// preserves it.
package filter

import (
	"encoding/xml"
	"fmt"
	"os"
)

// Rule is one filter entry: a repository root selecting a subtree (or a
// full-coverage aggregate) for inclusion.
type Rule struct {
	// Root is the repository path of the rule, e.g. "/apps/site".
	Root string
}

// Filters is the ordered set of rules from one workspace filter
// document.
type Filters struct {
	Rules []Rule
}

// Roots returns the rule roots in declaration order.
func (f *Filters) Roots() []string {
	if len(f.Rules) == 0 {
		return nil
	}
	roots := make([]string, len(f.Rules))
	for i, r := range f.Rules {
		roots[i] = r.Root
	}
	return roots
}

// workspaceFilterXML mirrors the on-disk document structure.
type workspaceFilterXML struct {
	XMLName xml.Name `xml:"workspaceFilter"`
	Filters []struct {
		Root string `xml:"root,attr"`
	} `xml:"filter"`
}

// Load parses the workspace filter document at path. A missing file is
// not an error: a package without filter rules includes its whole
// source tree, so Load returns an empty rule set.
func Load(path string) (*Filters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Filters{}, nil
		}
		return nil, fmt.Errorf("filter: read %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a workspace filter document. The name parameter is used
// in error messages only.
func Parse(data []byte, name string) (*Filters, error) {
	var doc workspaceFilterXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("filter: parse %q: %w", name, err)
	}

	f := &Filters{}
	for _, entry := range doc.Filters {
		if entry.Root == "" {
			return nil, fmt.Errorf("filter: parse %q: filter element without root attribute", name)
		}
		f.Rules = append(f.Rules, Rule{Root: entry.Root})
	}
	return f, nil
}
