// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vaultpack/internal/config"
	"vaultpack/internal/filter"
	"vaultpack/internal/filtering"
	"vaultpack/internal/issue"
	"vaultpack/internal/pack"
	"vaultpack/internal/watch"
	"vaultpack/pkg/zippath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	buildOutput    string
	buildSourceDir string
	buildWatch     bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Assemble the content package",
		Long: `Assemble the content package from the configured source tree.

Workspace filter rules from the work directory's filter.xml decide which
subtrees enter the package. Metadata, the work directory, embedded
artifacts, and the filtered source tree are layered in with fixed
precedence, and the result is written as a reproducible zip archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}
			if buildOutput != "" {
				cfg.Output = buildOutput
			}
			if buildSourceDir != "" {
				cfg.SourceDir = buildSourceDir
			}

			if buildWatch {
				return runWatchBuild(cmd.Context(), cfg)
			}
			return runBuild(cmd.Context(), cfg)
		},
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "package file to write (overrides config)")
	buildCmd.Flags().StringVar(&buildSourceDir, "source-dir", "", "content source tree (overrides config)")
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "rebuild continuously on source changes")
}

// newBuildLogger creates the logger the assembly engine reports through.
func newBuildLogger() *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Level:           level,
		Prefix:          "vaultpack",
	})
}

// buildOptions maps the application configuration onto one assembly
// invocation.
func buildOptions(cfg *config.Config, logger *log.Logger) (pack.Options, error) {
	filterPath := filepath.Join(cfg.WorkDir, filepath.FromSlash(pack.MetaDir), pack.FilterXML)
	filters, err := filter.Load(filterPath)
	if err != nil {
		rendered, _ := issue.Get(issue.FilterParseErrorId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return pack.Options{}, err
	}
	logger.Debug("loaded workspace filter", "path", filterPath, "rules", len(filters.Rules))

	embedded := make(map[string]string, len(cfg.Embedded))
	for _, entry := range cfg.Embedded {
		dest := zippath.Join(pack.RootDir, cfg.Prefix, zippath.Platform(entry.Target))
		embedded[dest] = entry.Source
	}

	filterer, err := newFilterer(cfg)
	if err != nil {
		return pack.Options{}, err
	}

	return pack.Options{
		SourceDir:                  cfg.SourceDir,
		MetaInfDir:                 cfg.MetaInfDir,
		WorkDir:                    cfg.WorkDir,
		Embedded:                   embedded,
		Filters:                    filters,
		Prefix:                     cfg.Prefix,
		Excludes:                   cfg.Excludes,
		UseDefaultExcludes:         cfg.UseDefaultExcludes,
		FailOnDuplicateEntries:     cfg.FailOnDuplicateEntries,
		FailOnUncoveredSourceFiles: cfg.FailOnUncoveredSourceFiles,
		OutputPath:                 cfg.Output,
		EnableRootFiltering:        cfg.Filtering.EnableRoot,
		EnableMetaInfFiltering:     cfg.Filtering.EnableMetaInf,
		Filterer:                   filterer,
		Logger:                     logger,
	}, nil
}

// newFilterer builds the token substitution collaborator, or nil when
// filtering is disabled.
func newFilterer(cfg *config.Config) (filtering.Filterer, error) {
	if !cfg.Filtering.EnableRoot && !cfg.Filtering.EnableMetaInf {
		return nil, nil
	}

	properties := map[string]string{}
	if cfg.Filtering.PropertiesFile != "" {
		loaded, err := filtering.LoadProperties(cfg.Filtering.PropertiesFile)
		if err != nil {
			rendered, _ := issue.Get(issue.PropertiesParseErrorId).Render("dark")
			fmt.Fprint(os.Stderr, rendered)
			return nil, err
		}
		properties = loaded
	}

	delims := filtering.DefaultDelimiters()
	for _, spec := range cfg.Filtering.Delimiters {
		d, err := filtering.ParseDelimiter(spec)
		if err != nil {
			return nil, err
		}
		delims = append(delims, d)
	}

	return &filtering.TokenFilterer{
		Properties:            properties,
		Delimiters:            delims,
		EscapeString:          cfg.Filtering.EscapeString,
		ExtraBinaryExtensions: cfg.Filtering.BinaryExtensions,
		WorkDir:               filepath.Join(cfg.WorkDir, "filtering"),
	}, nil
}

// runBuild performs one package assembly.
func runBuild(ctx context.Context, cfg *config.Config) error {
	logger := newBuildLogger()

	opts, err := buildOptions(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := pack.New(opts).Build(ctx)
	if err != nil {
		return reportBuildError(err)
	}

	fmt.Println(SuccessStyle.Render("✓ package written: ") +
		PathStyle.Render(result.OutputPath) +
		SubtitleStyle.Render(fmt.Sprintf(" (%d entries, %s)", result.EntryCount, time.Since(start).Round(time.Millisecond))))

	for _, d := range result.Duplicates {
		fmt.Println(WarningStyle.Render("! duplicate entry: ") + PathStyle.Render(d.Dest))
	}
	for _, f := range result.Uncovered {
		fmt.Println(WarningStyle.Render("! not covered by a filter rule: ") + PathStyle.Render(f))
	}
	return nil
}

// reportBuildError renders catalog guidance for the known failure modes
// and converts them to a non-zero exit.
func reportBuildError(err error) error {
	var conflict *pack.ConflictError
	var coverage *pack.CoverageError

	switch {
	case errors.As(err, &conflict):
		rendered, _ := issue.Get(issue.DuplicateEntriesId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
	case errors.As(err, &coverage):
		rendered, _ := issue.Get(issue.UncoveredFilesId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
	}

	return &ExitError{Code: 1, Err: err}
}

// runWatchBuild builds once, then rebuilds on every debounced change to
// the source, metadata, or work directories.
func runWatchBuild(ctx context.Context, cfg *config.Config) error {
	logger := newBuildLogger()

	// The first build's failure modes are reported but do not stop the
	// watch loop; the user fixes the input and saves again.
	if err := runBuild(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("build failed: ")+formatErrorForDisplay(err, verbose))
	}

	base, err := watchBase(cfg)
	if err != nil {
		return err
	}

	// The output file changes on every rebuild and must never retrigger
	// the watcher. An output outside the watched base cannot trigger it
	// in the first place.
	ignores := append([]string{}, cfg.Watch.Ignores...)
	if out, absErr := filepath.Abs(cfg.Output); absErr == nil {
		if rel, relErr := filepath.Rel(base, out); relErr == nil && !strings.HasPrefix(rel, "..") {
			ignores = append(ignores, filepath.ToSlash(rel), filepath.ToSlash(rel)+"/**")
		}
	}

	w, err := watch.New(watch.Config{
		BaseDir:  base,
		Ignore:   ignores,
		Debounce: time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("rebuilding", "changed", len(changed))
			if err := runBuild(ctx, cfg); err != nil {
				fmt.Fprintln(os.Stderr, ErrorStyle.Render("build failed: ")+formatErrorForDisplay(err, verbose))
			}
			return nil
		},
	})
	if err != nil {
		rendered, _ := issue.Get(issue.WatchStartFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	logger.Info("watching for changes", "base", base, "debounce", cfg.Watch.DebounceMillis)
	return w.Run(ctx)
}

// watchBase returns the directory watch mode observes: the deepest
// directory containing every configured build input. The configured
// directories may live outside the working directory, so watching the
// cwd is not enough.
func watchBase(cfg *config.Config) (string, error) {
	var dirs []string
	for _, dir := range []string{cfg.SourceDir, cfg.MetaInfDir, cfg.WorkDir} {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", err
		}
		dirs = append(dirs, abs)
	}
	if len(dirs) == 0 {
		return ".", nil
	}

	base := dirs[0]
	for _, dir := range dirs[1:] {
		base = commonDir(base, dir)
	}
	return base, nil
}

// commonDir returns the deepest directory containing both a and b.
// Both arguments must be absolute, cleaned paths.
func commonDir(a, b string) string {
	sep := string(filepath.Separator)
	for a != filepath.Dir(a) && !strings.HasPrefix(b+sep, a+sep) {
		a = filepath.Dir(a)
	}
	return a
}
