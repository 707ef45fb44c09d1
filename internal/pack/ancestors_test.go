// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestAncestorEntries(t *testing.T) {
	t.Parallel()

	t.Run("collects companions at every level", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		demo := filepath.Join(root, "apps", "demo")
		if err := os.MkdirAll(demo, 0755); err != nil {
			t.Fatal(err)
		}
		for _, dir := range []string{demo, filepath.Join(root, "apps"), root} {
			if err := os.WriteFile(filepath.Join(dir, DotContentXML), []byte("<jcr:root/>"), 0644); err != nil {
				t.Fatal(err)
			}
		}

		got := AncestorEntries(demo, root, "jcr_root/apps/demo")
		want := []SingleFile{
			{Source: filepath.Join(demo, DotContentXML), Dest: "jcr_root/apps/demo/.content.xml"},
			{Source: filepath.Join(root, "apps", DotContentXML), Dest: "jcr_root/apps/.content.xml"},
			{Source: filepath.Join(root, DotContentXML), Dest: "jcr_root/.content.xml"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("levels without companion contribute nothing", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		demo := filepath.Join(root, "apps", "demo")
		if err := os.MkdirAll(demo, 0755); err != nil {
			t.Fatal(err)
		}
		// Companion only at the apps level.
		if err := os.WriteFile(filepath.Join(root, "apps", DotContentXML), []byte("<jcr:root/>"), 0644); err != nil {
			t.Fatal(err)
		}

		got := AncestorEntries(demo, root, "jcr_root/apps/demo")
		want := []SingleFile{
			{Source: filepath.Join(root, "apps", DotContentXML), Dest: "jcr_root/apps/.content.xml"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("start outside the root yields nothing", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		other := t.TempDir()
		if err := os.WriteFile(filepath.Join(other, DotContentXML), []byte("<jcr:root/>"), 0644); err != nil {
			t.Fatal(err)
		}

		if got := AncestorEntries(other, filepath.Join(root, "src"), "jcr_root"); got != nil {
			t.Errorf("expected no entries, got %v", got)
		}
	})

	t.Run("companion that is a directory is skipped", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, DotContentXML), 0755); err != nil {
			t.Fatal(err)
		}

		if got := AncestorEntries(root, root, "jcr_root"); got != nil {
			t.Errorf("expected no entries, got %v", got)
		}
	})
}
