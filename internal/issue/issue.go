// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	FilterParseErrorId
	SourceDirNotFoundId
	DuplicateEntriesId
	UncoveredFilesId
	OutputWriteFailedId
	PropertiesParseErrorId
	WatchStartFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded!

Your vaultpack.cue file exists but could not be parsed or validated.

## Things you can try:
- Check the CUE syntax of your config file
- Compare your settings against the schema:
~~~
$ vaultpack config show
~~~

- Start over from a fresh default config:
~~~
$ vaultpack config init
~~~`,
	}

	filterParseErrorIssue = &Issue{
		id: FilterParseErrorId,
		mdMsg: `
# Workspace filter could not be parsed!

The filter.xml in your work directory is not a valid workspace filter
document.

## Expected structure:
~~~xml
<workspaceFilter version="1.0">
    <filter root="/apps/mysite"/>
    <filter root="/content/mysite"/>
</workspaceFilter>
~~~

## Things you can try:
- Check that every filter element carries a non-empty root attribute
- Validate the XML is well-formed
- Inspect the resolved rules with:
~~~
$ vaultpack filters
~~~`,
	}

	sourceDirNotFoundIssue = &Issue{
		id: SourceDirNotFoundId,
		mdMsg: `
# Content source directory not found!

The configured source directory does not exist, so there is no content
to package.

## Things you can try:
- Check the source_dir setting in vaultpack.cue
- Run vaultpack from the project root, where paths resolve relative to
- A metadata-only package is fine: leave source_dir empty on purpose`,
	}

	duplicateEntriesIssue = &Issue{
		id: DuplicateEntriesId,
		mdMsg: `
# Duplicate package entries!

Two different source files map to the same destination path inside the
package. Only one of them can win, and silently picking one hides a
real build problem.

## Common causes:
- An embedded artifact collides with a file in the source tree
- Two filter rules resolve to overlapping directories
- A generated metadata file shadows a hand-maintained one

## Things you can try:
- Remove or rename one of the conflicting sources
- Narrow the filter rules so the subtrees no longer overlap
- Set fail_on_duplicate_entries: false to package anyway (last wins)`,
	}

	uncoveredFilesIssue = &Issue{
		id: UncoveredFilesId,
		mdMsg: `
# Source files not covered by any filter rule!

Some files in the content source tree are not matched by any workspace
filter rule, so they would be silently left out of the package.

## Things you can try:
- Add a filter rule covering the missing paths to filter.xml
- Exclude the files explicitly if they are not meant to be packaged
- Set fail_on_uncovered_source_files: false to only warn about them`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Package file could not be written!

The package was assembled but the output file could not be created or
finalized.

## Things you can try:
- Check that the output directory exists and is writable
- Check free disk space
- Make sure no other process holds the output file open`,
	}

	propertiesParseErrorIssue = &Issue{
		id: PropertiesParseErrorId,
		mdMsg: `
# Filter properties could not be parsed!

The properties file used for token substitution is not valid CUE or
does not match the expected shape.

## Expected structure:
~~~cue
values: {
    "project.name":    "mysite"
    "project.version": "1.4.2"
}
~~~

## Things you can try:
- Check the CUE syntax of the properties file
- Make sure every value is a string`,
	}

	watchStartFailedIssue = &Issue{
		id: WatchStartFailedId,
		mdMsg: `
# Watch mode could not be started!

The filesystem watcher for continuous rebuilds failed to initialize.

## Common causes:
- The watched directory does not exist
- The inotify watch limit is exhausted on Linux

## Things you can try:
- Check the source and metadata directories exist
- Raise the watch limit:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~

- Run a one-shot build instead:
~~~
$ vaultpack build
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		filterParseErrorIssue.Id():     filterParseErrorIssue,
		sourceDirNotFoundIssue.Id():    sourceDirNotFoundIssue,
		duplicateEntriesIssue.Id():     duplicateEntriesIssue,
		uncoveredFilesIssue.Id():       uncoveredFilesIssue,
		outputWriteFailedIssue.Id():    outputWriteFailedIssue,
		propertiesParseErrorIssue.Id(): propertiesParseErrorIssue,
		watchStartFailedIssue.Id():     watchStartFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
