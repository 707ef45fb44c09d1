// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/log"

	"vaultpack/internal/archive"
	"vaultpack/internal/filter"
	"vaultpack/internal/filtering"
	"vaultpack/pkg/zippath"
)

// State identifies one stage of the assembly pipeline. Transitions are
// strictly sequential; a failed stage moves to StateFailed and aborts
// the remaining pipeline.
type State int

const (
	StateInit State = iota
	StateCollectMetadata
	StateCollectWorking
	StateCollectEmbedded
	StateCollectSourceTree
	StateValidateDuplicates
	StateValidateCoverage
	StateFinalize
	StateFailed
)

// String returns the stage name for logging.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCollectMetadata:
		return "collect-metadata"
	case StateCollectWorking:
		return "collect-working"
	case StateCollectEmbedded:
		return "collect-embedded"
	case StateCollectSourceTree:
		return "collect-source-tree"
	case StateValidateDuplicates:
		return "validate-duplicates"
	case StateValidateCoverage:
		return "validate-coverage"
	case StateFinalize:
		return "finalize"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options parameterizes one package build.
type Options struct {
	// SourceDir is the content source tree (optional; a package can be
	// metadata-only).
	SourceDir string

	// MetaInfDir is the user-maintained vault metadata directory
	// (optional). Its files map below META-INF/vault, except
	// filter.xml which always comes from WorkDir.
	MetaInfDir string

	// WorkDir is the generated working directory, mapped at the
	// archive root. It conventionally carries the authoritative
	// META-INF/vault/filter.xml.
	WorkDir string

	// Embedded maps destination paths to source files added
	// individually before the source tree.
	Embedded map[string]string

	// Filters is the ordered workspace filter rule set.
	Filters *filter.Filters

	// Prefix is an extra destination prefix inserted between the
	// content root and rule paths. Usually empty.
	Prefix string

	// Excludes and UseDefaultExcludes apply to every scanned fileset.
	Excludes           []string
	UseDefaultExcludes bool

	// FailOnDuplicateEntries aborts the build when distinct sources
	// claim the same destination.
	FailOnDuplicateEntries bool

	// FailOnUncoveredSourceFiles aborts the build when source files
	// are not covered by any filter rule.
	FailOnUncoveredSourceFiles bool

	// OutputPath is where the package file is written.
	OutputPath string

	// EnableRootFiltering and EnableMetaInfFiltering toggle resource
	// filtering for destinations below jcr_root/ and META-INF/.
	EnableRootFiltering    bool
	EnableMetaInfFiltering bool

	// Filterer is the token-substitution collaborator. Required only
	// when a filtering toggle is enabled.
	Filterer filtering.Filterer

	// Logger receives per-entry diagnostics. nil discards them.
	Logger *log.Logger
}

// Result summarizes a finished build.
type Result struct {
	// OutputPath is the written package file.
	OutputPath string

	// EntryCount is the number of distinct file destinations placed in
	// the package.
	EntryCount int

	// Duplicates are the conflicting destination claims observed
	// (empty under the strict duplicate policy, which aborts instead).
	Duplicates []Duplicate

	// Uncovered are source files no filter rule accounted for.
	Uncovered []string
}

// Assembler drives one package build through the assembly pipeline. It
// owns the build's Tracker and archive writer; neither is shared across
// invocations, so independent builds may run concurrently as long as
// each has its own Assembler.
type Assembler struct {
	opts    Options
	logger  *log.Logger
	tracker *Tracker
	writer  *archive.Writer
	state   State

	duplicates []Duplicate
	uncovered  []string
}

// New creates an Assembler for one build.
func New(opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Assembler{
		opts:    opts,
		logger:  logger,
		tracker: NewTracker(),
		state:   StateInit,
	}
}

// Build runs the pipeline to completion and returns the build result.
// Any stage error is terminal: the partial output file is removed and
// the error propagated. Context cancellation is honored between stages.
func (a *Assembler) Build(ctx context.Context) (*Result, error) {
	for a.state != StateFinalize {
		if err := ctx.Err(); err != nil {
			return nil, a.fail(fmt.Errorf("pack: build canceled: %w", err))
		}

		a.logger.Debug("entering stage", "state", a.state)
		var err error
		switch a.state {
		case StateInit:
			err = a.init()
		case StateCollectMetadata:
			err = a.collectMetadata()
		case StateCollectWorking:
			err = a.collectWorking()
		case StateCollectEmbedded:
			err = a.collectEmbedded()
		case StateCollectSourceTree:
			err = a.collectSourceTree()
		case StateValidateDuplicates:
			err = a.validateDuplicates()
		case StateValidateCoverage:
			err = a.validateCoverage()
		}
		if err != nil {
			return nil, a.fail(err)
		}
		a.state++
	}

	if err := a.writer.Close(); err != nil {
		return nil, a.fail(err)
	}

	return &Result{
		OutputPath: a.opts.OutputPath,
		EntryCount: len(a.writer.Files()),
		Duplicates: a.duplicates,
		Uncovered:  a.uncovered,
	}, nil
}

// fail transitions to the terminal failure state and discards the
// partially written archive.
func (a *Assembler) fail(err error) error {
	a.state = StateFailed
	if a.writer != nil {
		if abortErr := a.writer.Abort(); abortErr != nil {
			a.logger.Warn("could not discard partial output", "err", abortErr)
		}
	}
	return err
}

func (a *Assembler) init() error {
	if a.opts.OutputPath == "" {
		return fmt.Errorf("pack: output path cannot be empty")
	}
	w, err := archive.NewWriter(archive.Config{
		OutputPath: a.opts.OutputPath,
		Transform:  a.transform,
	})
	if err != nil {
		return err
	}
	a.writer = w
	return nil
}

// transform applies the resource-filtering collaborator to files whose
// destination falls under an enabled prefix.
func (a *Assembler) transform(src, dest string) (string, error) {
	if a.opts.Filterer == nil {
		return src, nil
	}
	enabled := (a.opts.EnableRootFiltering && zippath.HasPrefix(dest, RootDir)) ||
		(a.opts.EnableMetaInfFiltering && zippath.HasPrefix(dest, MetaInf))
	if !enabled {
		return src, nil
	}

	a.logger.Info("applying filtering", "file", src)
	out, err := a.opts.Filterer.FilterFile(src, dest)
	if err != nil {
		return "", fmt.Errorf("pack: filter %q: %w", src, err)
	}
	return out, nil
}

// collectMetadata adds the user metadata directory below META-INF/vault.
// Its files take precedence over the generated ones from the work
// directory, except filter.xml, which is always excluded here so the
// packaged copy comes from the work directory.
func (a *Assembler) collectMetadata() error {
	if a.opts.MetaInfDir == "" {
		return nil
	}

	fs := archive.FileSet{
		Dir:                a.opts.MetaInfDir,
		Prefix:             MetaDir + "/",
		Excludes:           append(append([]string{}, a.opts.Excludes...), FilterXML),
		UseDefaultExcludes: a.opts.UseDefaultExcludes,
		IncludeEmptyDirs:   true,
	}

	dups, err := a.addFileSet(fs, true)
	if err != nil {
		return err
	}
	a.duplicates = append(a.duplicates, dups...)
	return nil
}

// collectWorking adds the generated work directory at the archive root.
// The already-collected metadata directory keeps precedence: a work dir
// file for a claimed destination is not packaged, and the overlap is
// reported immediately. The always-expected static metadata files are
// informational, everything else warns.
func (a *Assembler) collectWorking() error {
	if a.opts.WorkDir == "" {
		return nil
	}

	fs := archive.FileSet{
		Dir:                a.opts.WorkDir,
		Prefix:             "",
		Excludes:           a.opts.Excludes,
		UseDefaultExcludes: a.opts.UseDefaultExcludes,
		IncludeEmptyDirs:   true,
	}

	dups, err := a.addFileSet(fs, true)
	if err != nil {
		return err
	}
	for _, d := range dups {
		if staticMetaInfFiles[d.Dest] {
			a.logger.Info("duplicate metadata entry",
				"dest", d.Dest, "first", d.First, "second", d.Second)
		} else {
			a.logger.Warn("duplicate entry",
				"dest", d.Dest, "first", d.First, "second", d.Second)
		}
	}
	return nil
}

// collectEmbedded adds the explicitly embedded files, in lexical
// destination order for determinism. Embedded entries are protected:
// they take precedence over source tree files at the same destination.
func (a *Assembler) collectEmbedded() error {
	dests := make([]string, 0, len(a.opts.Embedded))
	for dest := range a.opts.Embedded {
		dests = append(dests, dest)
	}
	sort.Strings(dests)

	for _, dest := range dests {
		src := a.opts.Embedded[dest]
		norm := zippath.Normalize(dest)
		if existing, dup := a.tracker.Claim(norm, src, true); dup {
			if existing != src {
				a.duplicates = append(a.duplicates, Duplicate{Dest: norm, First: existing, Second: src})
			}
			continue
		}
		a.logger.Debug("adding embedded file", "source", src, "dest", dest)
		if err := a.writer.AddFile(src, dest); err != nil {
			return err
		}
	}
	return nil
}

// collectSourceTree resolves the filter rules against the source tree
// and adds every inclusion. Resolution order is rule declaration order;
// duplicates are accumulated for the validation stage.
func (a *Assembler) collectSourceTree() error {
	if a.opts.SourceDir == "" {
		return nil
	}
	if _, err := os.Stat(a.opts.SourceDir); os.IsNotExist(err) {
		return nil
	}

	var roots []string
	if a.opts.Filters != nil {
		roots = a.opts.Filters.Roots()
	}

	incs := Resolve(roots, ResolveOptions{
		SourceRoot:         a.opts.SourceDir,
		DestPrefix:         zippath.Join(RootDir, a.opts.Prefix),
		Excludes:           a.opts.Excludes,
		UseDefaultExcludes: a.opts.UseDefaultExcludes,
		Embedded:           a.opts.Embedded,
	})

	for _, inc := range incs {
		switch {
		case inc.File != nil:
			existing, dup := a.tracker.Claim(inc.File.Dest, inc.File.Source, false)
			if dup {
				if existing != inc.File.Source {
					a.duplicates = append(a.duplicates, Duplicate{
						Dest: inc.File.Dest, First: existing, Second: inc.File.Source,
					})
				}
			} else if err := a.writer.AddFile(inc.File.Source, inc.File.Dest); err != nil {
				return err
			}

		case inc.Set != nil:
			dups, err := a.addFileSet(*inc.Set, false)
			if err != nil {
				return err
			}
			a.duplicates = append(a.duplicates, dups...)
		}

		for _, anc := range inc.Ancestors {
			// An ancestor companion may already be present, either from
			// the fileset that contains it or from an earlier rule's
			// closure. Same file, same destination: not a conflict.
			if _, claimed := a.tracker.Claim(anc.Dest, anc.Source, false); claimed {
				continue
			}
			a.logger.Debug("adding ancestor file", "source", anc.Source, "dest", anc.Dest)
			if err := a.writer.AddFile(anc.Source, anc.Dest); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateDuplicates reports every accumulated duplicate and fails the
// build under the strict policy.
func (a *Assembler) validateDuplicates() error {
	for _, d := range a.duplicates {
		if a.opts.FailOnDuplicateEntries {
			a.logger.Error("duplicate entry",
				"dest", d.Dest, "first", d.First, "second", d.Second)
		} else {
			a.logger.Warn("duplicate entry",
				"dest", d.Dest, "first", d.First, "second", d.Second)
		}
	}
	if a.opts.FailOnDuplicateEntries && len(a.duplicates) > 0 {
		return &ConflictError{Duplicates: a.duplicates}
	}
	return nil
}

// validateCoverage computes the source files never claimed by any
// accepted destination entry and fails the build under the strict
// policy.
func (a *Assembler) validateCoverage() error {
	if a.opts.SourceDir == "" {
		return nil
	}
	if _, err := os.Stat(a.opts.SourceDir); os.IsNotExist(err) {
		return nil
	}

	uncovered, err := Uncovered(
		a.opts.SourceDir,
		a.opts.Excludes,
		a.opts.UseDefaultExcludes,
		zippath.Join(RootDir, a.opts.Prefix),
		a.writer.Files(),
	)
	if err != nil {
		return err
	}
	a.uncovered = uncovered

	for _, f := range uncovered {
		if a.opts.FailOnUncoveredSourceFiles {
			a.logger.Error("file not covered by a filter rule", "file", f)
		} else {
			a.logger.Warn("file not covered by a filter rule", "file", f)
		}
	}
	if a.opts.FailOnUncoveredSourceFiles && len(uncovered) > 0 {
		return &CoverageError{Files: uncovered}
	}
	return nil
}

// addFileSet claims and adds every file the set yields, returning the
// duplicates found. A destination that is already claimed is not added
// again: the earlier origin's copy stays in the archive, which is what
// gives protected entries their precedence over later origins.
func (a *Assembler) addFileSet(fs archive.FileSet, protected bool) ([]Duplicate, error) {
	files, err := fs.Scan()
	if err != nil {
		return nil, err
	}

	var dups []Duplicate
	for _, rel := range files {
		dest := zippath.Normalize(fs.Prefix + rel)
		src := fs.SourcePath(rel)
		if existing, dup := a.tracker.Claim(dest, src, protected); dup {
			if existing != src {
				dups = append(dups, Duplicate{Dest: dest, First: existing, Second: src})
			}
			continue
		}
		if err := a.writer.AddFile(src, dest); err != nil {
			return nil, err
		}
	}

	if fs.IncludeEmptyDirs {
		if err := a.writer.AddEmptyDirs(fs); err != nil {
			return nil, err
		}
	}
	return dups, nil
}
