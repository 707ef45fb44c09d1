// SPDX-License-Identifier: MPL-2.0

// Package pack contains the content package assembly engine.
//
// The engine decides exactly which (source file → destination path)
// pairs enter a package and under what precedence. It combines four
// concerns, each owned by one file in this package:
//
//   - rule resolution (resolver.go): maps each workspace filter root,
//     in declaration order, to the concrete source location it covers:
//     a full-coverage aggregate file, a directory subtree, or the
//     nearest existing ancestor directory;
//   - ancestor closure (ancestors.go): walks from every included node
//     up to the source root, carrying along each level's companion
//     .content.xml so the hierarchical format stays structurally valid;
//   - duplicate tracking (tracker.go): a per-build map from destination
//     path to the source that first claimed it, used to detect
//     conflicting origins;
//   - coverage validation (coverage.go): the set difference between the
//     scanned source tree and the destinations actually placed in the
//     package.
//
// The Assembler (assembler.go) sequences the four over the package's
// file origins (metadata directory, generated work directory, embedded
// files, filtered source tree) and applies the configured duplicate
// and coverage policy.
package pack

// Package layout constants. These are the conventional names of the
// content package format and never vary per build.
const (
	// RootDir is the archive directory holding repository content.
	RootDir = "jcr_root"

	// MetaInf is the archive directory holding package metadata.
	MetaInf = "META-INF"

	// MetaDir is the vault metadata directory below MetaInf.
	MetaDir = "META-INF/vault"

	// FilterXML is the workspace filter document name. The packaged
	// copy always comes from the generated work directory.
	FilterXML = "filter.xml"

	// DotContentXML is the companion metadata file describing a single
	// directory node.
	DotContentXML = ".content.xml"
)

// staticMetaInfFiles are metadata entries that are regularly present in
// both the user metadata directory and the generated work directory.
// A duplicate on one of these is expected and reported informationally
// rather than as a warning.
var staticMetaInfFiles = map[string]bool{
	MetaDir + "/config.xml":   true,
	MetaDir + "/settings.xml": true,
}
