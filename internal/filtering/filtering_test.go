// SPDX-License-Identifier: MPL-2.0

package filtering

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		spec      string
		expected  Delimiter
		expectErr bool
	}{
		{name: "begin star end", spec: "${*}", expected: Delimiter{Begin: "${", End: "}"}},
		{name: "symmetric", spec: "@", expected: Delimiter{Begin: "@", End: "@"}},
		{name: "explicit symmetric", spec: "@*@", expected: Delimiter{Begin: "@", End: "@"}},
		{name: "empty", spec: "", expectErr: true},
		{name: "missing end", spec: "${*", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := ParseDelimiter(tt.spec)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d != tt.expected {
				t.Errorf("ParseDelimiter(%q) = %+v, want %+v", tt.spec, d, tt.expected)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	props := map[string]string{
		"project.version": "1.4.2",
		"env":             "prod",
	}

	tests := []struct {
		name     string
		filterer *TokenFilterer
		in       string
		expected string
	}{
		{
			name:     "dollar brace token",
			filterer: &TokenFilterer{Properties: props},
			in:       `version="${project.version}"`,
			expected: `version="1.4.2"`,
		},
		{
			name:     "at token",
			filterer: &TokenFilterer{Properties: props},
			in:       "deploy to @env@ now",
			expected: "deploy to prod now",
		},
		{
			name:     "unknown token kept",
			filterer: &TokenFilterer{Properties: props},
			in:       "${no.such.token}",
			expected: "${no.such.token}",
		},
		{
			name:     "escaped expression emitted literally",
			filterer: &TokenFilterer{Properties: props, EscapeString: `\`},
			in:       `\${project.version} and ${project.version}`,
			expected: `${project.version} and 1.4.2`,
		},
		{
			name: "custom delimiter",
			filterer: &TokenFilterer{
				Properties: props,
				Delimiters: []Delimiter{{Begin: "[[", End: "]]"}},
			},
			in:       "v=[[project.version]] untouched=${project.version}",
			expected: "v=1.4.2 untouched=${project.version}",
		},
		{
			name:     "token never spans lines",
			filterer: &TokenFilterer{Properties: props},
			in:       "${project\n.version}",
			expected: "${project\n.version}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filterer.substitute(tt.in); got != tt.expected {
				t.Errorf("substitute(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestFilterFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "node.xml")
	if err := os.WriteFile(src, []byte(`<node version="${project.version}"/>`), 0644); err != nil {
		t.Fatal(err)
	}

	f := &TokenFilterer{
		Properties: map[string]string{"project.version": "2.0.0"},
		WorkDir:    filepath.Join(dir, "work"),
	}

	out, err := f.FilterFile(src, "jcr_root/apps/node.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == src {
		t.Fatal("expected a filtered copy, got the source path")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	expected := `<node version="2.0.0"/>`
	if string(data) != expected {
		t.Errorf("filtered content = %q, want %q", string(data), expected)
	}
}

func TestFilterFileBinaryPassthrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	if err := os.WriteFile(src, []byte("${not.a.token}"), 0644); err != nil {
		t.Fatal(err)
	}

	f := &TokenFilterer{
		Properties: map[string]string{"not.a.token": "boom"},
		WorkDir:    filepath.Join(dir, "work"),
	}

	out, err := f.FilterFile(src, "jcr_root/logo.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != src {
		t.Errorf("binary file must pass through unchanged, got %q", out)
	}
}

func TestFilterFileExtraBinaryExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	if err := os.WriteFile(src, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	f := &TokenFilterer{
		ExtraBinaryExtensions: []string{"bin"},
		WorkDir:               filepath.Join(dir, "work"),
	}

	out, err := f.FilterFile(src, "jcr_root/blob.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != src {
		t.Errorf("configured binary extension must pass through, got %q", out)
	}
}
