// SPDX-License-Identifier: MPL-2.0

// Package archive writes content package zip files.
//
// The writer exposes the operations the assembly engine needs: adding
// a single file at an explicit destination, and preserving the empty
// directories of a scanned fileset. Entries are written in call order
// and later entries win over earlier ones with the same name, matching
// zip reader semantics; duplicate policy is enforced upstream by the
// assembler, which adds each destination at most once.
//
// Output is reproducible: fileset scans are lexically ordered and every
// entry carries the same fixed modification timestamp, so building the
// same tree twice yields byte-identical archives.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"vaultpack/internal/scan"
	"vaultpack/pkg/zippath"
)

// defaultModified is the timestamp stamped on every entry when the
// caller does not supply one. Zip cannot represent times before 1980.
var defaultModified = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// FileSet describes a directory to be added below a destination prefix.
type FileSet struct {
	// Dir is the source directory to scan.
	Dir string

	// Prefix is the destination prefix inside the archive. It must be
	// empty or end with a separator; the trailing separator is what
	// distinguishes a directory inclusion from a single-file one.
	Prefix string

	// Includes and Excludes are glob patterns applied by the scanner.
	Includes []string
	Excludes []string

	// UseDefaultExcludes merges the scanner's built-in exclude set.
	UseDefaultExcludes bool

	// IncludeEmptyDirs preserves empty directories as explicit entries.
	IncludeEmptyDirs bool
}

// Scan returns the relative paths of the files the set would add, in
// lexical order. The assembler uses this to claim destinations before
// the physical add.
func (fs FileSet) Scan() ([]string, error) {
	return scan.Files(fs.Dir, scan.Options{
		Includes:           fs.Includes,
		Excludes:           fs.Excludes,
		UseDefaultExcludes: fs.UseDefaultExcludes,
	})
}

// SourcePath resolves a scanned relative path back to its source file.
func (fs FileSet) SourcePath(rel string) string {
	return filepath.Join(fs.Dir, filepath.FromSlash(rel))
}

// TransformFunc maps a source file to the file that should actually be
// written for a given destination. The assembler uses this to splice in
// the resource-filtering collaborator; returning src unchanged means no
// transformation.
type TransformFunc func(src, dest string) (string, error)

// Config holds the parameters for a Writer.
type Config struct {
	// OutputPath is where the archive file is created.
	OutputPath string

	// Modified is the fixed timestamp for all entries. The zero value
	// falls back to the 1980-01-01 epoch.
	Modified time.Time

	// Transform, when non-nil, is applied to every file before it is
	// written.
	Transform TransformFunc
}

// Writer assembles one content package file. It is not safe for
// concurrent use; one build invocation owns one Writer.
type Writer struct {
	f        *os.File
	zw       *zip.Writer
	files    map[string]string
	modified time.Time
	cfg      Config
	closed   bool
}

// NewWriter creates the output file and an empty archive over it.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("archive: output path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
		return nil, fmt.Errorf("archive: create output directory: %w", err)
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("archive: create %q: %w", cfg.OutputPath, err)
	}

	modified := cfg.Modified
	if modified.IsZero() {
		modified = defaultModified
	}

	return &Writer{
		f:        f,
		zw:       zip.NewWriter(f),
		files:    make(map[string]string),
		modified: modified,
		cfg:      cfg,
	}, nil
}

// AddFile writes the file at src to the archive at dest. The
// destination is normalized to archive form first. A later AddFile for
// the same destination appends a new entry that supersedes the earlier
// one on extraction.
func (w *Writer) AddFile(src, dest string) error {
	dest = zippath.Normalize(dest)
	if dest == "" {
		return fmt.Errorf("archive: empty destination for %q", src)
	}

	if w.cfg.Transform != nil {
		transformed, err := w.cfg.Transform(src, dest)
		if err != nil {
			return fmt.Errorf("archive: transform %q: %w", src, err)
		}
		src = transformed
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("archive: stat %q: %w", src, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive: header for %q: %w", src, err)
	}
	header.Name = dest
	header.Method = zip.Deflate
	header.Modified = w.modified

	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive: create entry %q: %w", dest, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("archive: open %q: %w", src, err)
	}
	defer in.Close()

	if _, err := io.Copy(entry, in); err != nil {
		return fmt.Errorf("archive: write entry %q: %w", dest, err)
	}

	w.files[dest] = src
	return nil
}

// AddEmptyDirs scans fs.Dir for directories that contain no files and
// writes explicit directory entries for them below fs.Prefix. Callers
// that add a fileset's files one by one use this to keep the empty
// directories the package must preserve.
func (w *Writer) AddEmptyDirs(fs FileSet) error {
	dirs, err := scan.EmptyDirs(fs.Dir, scan.Options{
		Includes:           fs.Includes,
		Excludes:           fs.Excludes,
		UseDefaultExcludes: fs.UseDefaultExcludes,
	})
	if err != nil {
		return err
	}
	for _, rel := range dirs {
		name := zippath.Normalize(fs.Prefix+rel) + "/"
		if _, err := w.zw.Create(name); err != nil {
			return fmt.Errorf("archive: create directory entry %q: %w", name, err)
		}
	}
	return nil
}

// Files returns a copy of the destination→source mapping of every file
// written so far. The assembler's coverage validation runs against this
// set.
func (w *Writer) Files() map[string]string {
	out := make(map[string]string, len(w.files))
	for dest, src := range w.files {
		out[dest] = src
	}
	return out
}

// Close finalizes the archive and the underlying file. It is safe to
// call once; further adds after Close fail at the zip layer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		w.f.Close() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("archive: finalize %q: %w", w.cfg.OutputPath, err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("archive: close %q: %w", w.cfg.OutputPath, err)
	}
	return nil
}

// Abort closes and removes a partially written archive after a failed
// build.
func (w *Writer) Abort() error {
	if !w.closed {
		w.closed = true
		w.zw.Close() //nolint:errcheck // output is discarded
		w.f.Close()  //nolint:errcheck // output is discarded
	}
	if err := os.Remove(w.cfg.OutputPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("archive: remove %q: %w", w.cfg.OutputPath, err)
	}
	return nil
}
