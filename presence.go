package confighelper

import (
	"sort"
)

// Presence is the bit flag collected for each incoming path by BindWithReport.
type Presence uint8

const (
	PresenceSeen        Presence = 1 << iota // Key appeared in the document.
	PresenceBound                            // Key matched a declared key and was applied.
	PresenceUnknown                          // Key matched nothing and was ignored.
	PresenceWasNull                          // Value was null; the field was left untouched.
	PresenceConstructed                      // A default nested instance was created for it.
)

// PresenceMap maps dotted paths to Presence flags.
type PresenceMap map[string]Presence

// Report describes what a bind pass did with each incoming path.
type Report struct {
	Presence PresenceMap
}

func newReport() *Report { return &Report{Presence: PresenceMap{}} }

func (r *Report) mark(path string, p Presence) {
	if r == nil {
		return
	}
	r.Presence[path] |= p
}

// Paths returns the sorted paths carrying every bit of p.
func (r *Report) Paths(p Presence) []string {
	if r == nil {
		return nil
	}
	var out []string
	for k, v := range r.Presence {
		if v&p == p {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Unknown returns the ignored paths, sorted.
func (r *Report) Unknown() []string { return r.Paths(PresenceUnknown) }

// Constructed returns the paths where a default instance was synthesized.
func (r *Report) Constructed() []string { return r.Paths(PresenceConstructed) }
