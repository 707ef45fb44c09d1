// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"vaultpack/internal/filtering"
)

var (
	// ErrInvalidEmbeddedEntry is the sentinel error wrapped by InvalidEmbeddedEntryError.
	ErrInvalidEmbeddedEntry = errors.New("invalid embedded entry")
	// ErrInvalidDelimiterSpec is returned when a delimiter spec cannot be parsed.
	ErrInvalidDelimiterSpec = errors.New("invalid delimiter spec")
)

type (
	// EmbeddedEntry maps one pre-built artifact into the package at an
	// explicit destination below the content root.
	EmbeddedEntry struct {
		// Source is the filesystem path of the artifact.
		Source string `mapstructure:"source"`
		// Target is the destination path below the content root,
		// written repository-style (e.g., "/apps/mysite/install/site.jar").
		Target string `mapstructure:"target"`
	}

	// InvalidEmbeddedEntryError is returned when an embedded entry is
	// incomplete or collides with another. It wraps ErrInvalidEmbeddedEntry
	// for errors.Is() compatibility.
	InvalidEmbeddedEntryError struct {
		Index  int
		Reason string
	}

	// FilteringConfig controls token substitution on packaged files.
	FilteringConfig struct {
		// EnableRoot applies filtering to files below jcr_root/.
		EnableRoot bool `mapstructure:"enable_root"`
		// EnableMetaInf applies filtering to files below META-INF/.
		EnableMetaInf bool `mapstructure:"enable_meta_inf"`
		// PropertiesFile is a CUE file providing the token values.
		PropertiesFile string `mapstructure:"properties_file"`
		// Delimiters are extra "begin*end" delimiter specs recognized in
		// addition to the built-in ${*} and @*@ pairs.
		Delimiters []string `mapstructure:"delimiters"`
		// EscapeString marks expressions that must be emitted literally.
		EscapeString string `mapstructure:"escape_string"`
		// BinaryExtensions extends the built-in list of file extensions
		// that are never filtered.
		BinaryExtensions []string `mapstructure:"binary_extensions"`
	}

	// WatchConfig controls continuous rebuild mode.
	WatchConfig struct {
		// DebounceMillis is the quiet period after a filesystem event
		// before a rebuild starts.
		DebounceMillis int `mapstructure:"debounce_millis"`
		// Ignores are extra doublestar patterns excluded from watching.
		Ignores []string `mapstructure:"ignores"`
	}

	// UIConfig holds terminal output settings.
	UIConfig struct {
		// Verbose enables verbose output.
		Verbose bool `mapstructure:"verbose"`
	}

	// Config is the complete application configuration.
	Config struct {
		// SourceDir is the content source tree.
		SourceDir string `mapstructure:"source_dir"`
		// MetaInfDir is the user-maintained vault metadata directory.
		MetaInfDir string `mapstructure:"meta_inf_dir"`
		// WorkDir is the generated working directory holding filter.xml
		// and other build-time metadata.
		WorkDir string `mapstructure:"work_dir"`
		// Output is the package file to write.
		Output string `mapstructure:"output"`
		// Prefix is an extra destination prefix below the content root.
		Prefix string `mapstructure:"prefix"`
		// Excludes are doublestar patterns removed from every scan.
		Excludes []string `mapstructure:"excludes"`
		// UseDefaultExcludes merges the built-in VCS and editor junk
		// exclude patterns.
		UseDefaultExcludes bool `mapstructure:"use_default_excludes"`
		// FailOnDuplicateEntries aborts the build on conflicting
		// destination claims.
		FailOnDuplicateEntries bool `mapstructure:"fail_on_duplicate_entries"`
		// FailOnUncoveredSourceFiles aborts the build when source files
		// escape every filter rule.
		FailOnUncoveredSourceFiles bool `mapstructure:"fail_on_uncovered_source_files"`
		// Embedded are pre-built artifacts placed into the package.
		Embedded []EmbeddedEntry `mapstructure:"embedded"`
		// Filtering controls token substitution.
		Filtering FilteringConfig `mapstructure:"filtering"`
		// Watch controls continuous rebuild mode.
		Watch WatchConfig `mapstructure:"watch"`
		// UI holds terminal output settings.
		UI UIConfig `mapstructure:"ui"`
	}
)

// Error implements the error interface.
func (e *InvalidEmbeddedEntryError) Error() string {
	return fmt.Sprintf("embedded[%d]: %s", e.Index, e.Reason)
}

// Unwrap returns ErrInvalidEmbeddedEntry for errors.Is() checks.
func (e *InvalidEmbeddedEntryError) Unwrap() error {
	return ErrInvalidEmbeddedEntry
}

// DefaultConfig returns the configuration used when no config file is
// present.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:                  "jcr_root",
		MetaInfDir:                 "META-INF/vault",
		WorkDir:                    "vault-work",
		Output:                     "dist/package.zip",
		UseDefaultExcludes:         true,
		FailOnDuplicateEntries:     true,
		FailOnUncoveredSourceFiles: false,
		Filtering: FilteringConfig{
			EscapeString: "\\",
		},
		Watch: WatchConfig{
			DebounceMillis: 400,
		},
	}
}

// Validate checks constraints that CUE cannot express: embedded entry
// completeness, target uniqueness, and delimiter spec syntax.
func (c *Config) Validate() error {
	seenTargets := make(map[string]int) // target -> index of first occurrence

	for i, entry := range c.Embedded {
		if strings.TrimSpace(entry.Source) == "" {
			return &InvalidEmbeddedEntryError{Index: i, Reason: "source must not be empty"}
		}
		if strings.TrimSpace(entry.Target) == "" {
			return &InvalidEmbeddedEntryError{Index: i, Reason: "target must not be empty"}
		}
		if firstIdx, exists := seenTargets[entry.Target]; exists {
			return &InvalidEmbeddedEntryError{
				Index:  i,
				Reason: fmt.Sprintf("duplicate target %q (same as embedded[%d])", entry.Target, firstIdx),
			}
		}
		seenTargets[entry.Target] = i
	}

	for _, spec := range c.Filtering.Delimiters {
		if _, err := filtering.ParseDelimiter(spec); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidDelimiterSpec, spec, err)
		}
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Vaultpack Configuration File\n")
	sb.WriteString("// See https://github.com/vaultpack/vaultpack for documentation.\n\n")

	sb.WriteString(fmt.Sprintf("source_dir: %q\n", cfg.SourceDir))
	sb.WriteString(fmt.Sprintf("meta_inf_dir: %q\n", cfg.MetaInfDir))
	sb.WriteString(fmt.Sprintf("work_dir: %q\n", cfg.WorkDir))
	sb.WriteString(fmt.Sprintf("output: %q\n", cfg.Output))
	if cfg.Prefix != "" {
		sb.WriteString(fmt.Sprintf("prefix: %q\n", cfg.Prefix))
	}

	if len(cfg.Excludes) > 0 {
		sb.WriteString("\nexcludes: [\n")
		for _, pattern := range cfg.Excludes {
			sb.WriteString(fmt.Sprintf("\t%q,\n", pattern))
		}
		sb.WriteString("]\n")
	}
	sb.WriteString(fmt.Sprintf("use_default_excludes: %v\n", cfg.UseDefaultExcludes))
	sb.WriteString(fmt.Sprintf("fail_on_duplicate_entries: %v\n", cfg.FailOnDuplicateEntries))
	sb.WriteString(fmt.Sprintf("fail_on_uncovered_source_files: %v\n", cfg.FailOnUncoveredSourceFiles))

	if len(cfg.Embedded) > 0 {
		sb.WriteString("\nembedded: [\n")
		for _, entry := range cfg.Embedded {
			sb.WriteString(fmt.Sprintf("\t{source: %q, target: %q},\n", entry.Source, entry.Target))
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nfiltering: {\n")
	sb.WriteString(fmt.Sprintf("\tenable_root: %v\n", cfg.Filtering.EnableRoot))
	sb.WriteString(fmt.Sprintf("\tenable_meta_inf: %v\n", cfg.Filtering.EnableMetaInf))
	if cfg.Filtering.PropertiesFile != "" {
		sb.WriteString(fmt.Sprintf("\tproperties_file: %q\n", cfg.Filtering.PropertiesFile))
	}
	if len(cfg.Filtering.Delimiters) > 0 {
		sb.WriteString("\tdelimiters: [\n")
		for _, spec := range cfg.Filtering.Delimiters {
			sb.WriteString(fmt.Sprintf("\t\t%q,\n", spec))
		}
		sb.WriteString("\t]\n")
	}
	if cfg.Filtering.EscapeString != "" {
		sb.WriteString(fmt.Sprintf("\tescape_string: %q\n", cfg.Filtering.EscapeString))
	}
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	sb.WriteString(fmt.Sprintf("\tdebounce_millis: %d\n", cfg.Watch.DebounceMillis))
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}
