// SPDX-License-Identifier: MPL-2.0

package pack

import "testing"

func TestTrackerClaim(t *testing.T) {
	t.Parallel()

	t.Run("first claim records without duplicate", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker()

		existing, dup := tr.Claim("jcr_root/apps/a.txt", "/src/a.txt", false)
		if dup {
			t.Errorf("expected no duplicate, got existing %q", existing)
		}
		if src, ok := tr.Source("jcr_root/apps/a.txt"); !ok || src != "/src/a.txt" {
			t.Errorf("expected recorded source /src/a.txt, got %q (ok=%v)", src, ok)
		}
	})

	t.Run("unprotected duplicate keeps original record", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker()
		tr.Claim("jcr_root/apps/a.txt", "/first/a.txt", false)

		existing, dup := tr.Claim("jcr_root/apps/a.txt", "/second/a.txt", false)
		if !dup {
			t.Fatal("expected duplicate")
		}
		if existing != "/first/a.txt" {
			t.Errorf("expected existing /first/a.txt, got %q", existing)
		}
		if src, _ := tr.Source("jcr_root/apps/a.txt"); src != "/first/a.txt" {
			t.Errorf("record changed on unprotected claim: %q", src)
		}
	})

	t.Run("protected duplicate overwrites record", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker()
		tr.Claim("META-INF/vault/properties.xml", "/meta/properties.xml", true)

		existing, dup := tr.Claim("META-INF/vault/properties.xml", "/work/properties.xml", true)
		if !dup || existing != "/meta/properties.xml" {
			t.Fatalf("expected duplicate against /meta/properties.xml, got %q (dup=%v)", existing, dup)
		}
		if src, _ := tr.Source("META-INF/vault/properties.xml"); src != "/work/properties.xml" {
			t.Errorf("expected protected claim to take over the record, got %q", src)
		}

		// A third claim now conflicts against the protected owner.
		existing, dup = tr.Claim("META-INF/vault/properties.xml", "/tree/properties.xml", false)
		if !dup || existing != "/work/properties.xml" {
			t.Errorf("expected duplicate against /work/properties.xml, got %q (dup=%v)", existing, dup)
		}
	})

	t.Run("len counts distinct destinations", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker()
		tr.Claim("a", "s1", false)
		tr.Claim("b", "s2", false)
		tr.Claim("a", "s3", true)

		if got := tr.Len(); got != 2 {
			t.Errorf("expected 2 destinations, got %d", got)
		}
	})
}
