// SPDX-License-Identifier: MPL-2.0

package pack

// Duplicate records two distinct source files claiming the same
// destination path. First is always the source recorded earlier in
// origin order.
type Duplicate struct {
	Dest   string
	First  string
	Second string
}

// Tracker maps destination paths to the source file that claimed them.
// One Tracker belongs to exactly one build invocation; it is owned by
// the Assembler and must not be shared across builds.
type Tracker struct {
	claims map[string]string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{claims: make(map[string]string)}
}

// Claim records src as the owner of dest. The first claim for a
// destination always records; a later claim is reported as a duplicate
// against the originally recorded source. On a duplicate the record is
// replaced only when the new claim is protected, so subsequent claims
// keep conflicting against the authoritative source.
func (t *Tracker) Claim(dest, src string, protected bool) (existing string, duplicate bool) {
	if first, ok := t.claims[dest]; ok {
		if protected {
			t.claims[dest] = src
		}
		return first, true
	}
	t.claims[dest] = src
	return "", false
}

// Source returns the source currently recorded for dest.
func (t *Tracker) Source(dest string) (string, bool) {
	src, ok := t.claims[dest]
	return src, ok
}

// Len returns the number of claimed destinations.
func (t *Tracker) Len() int {
	return len(t.claims)
}
