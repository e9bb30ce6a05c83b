// Package incremental decides which content groups need rebuilding by
// comparing per-group fingerprints with those of the last successful deploy.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"

	"git.home.luguber.info/inful/seriesgen/internal/content"
)

// missingID is hashed in place of a record without a content-unique-id.
const missingID = "8"

// Fingerprints maps group id to fingerprint.
type Fingerprints map[string]string

// Clone returns an independent copy.
func (f Fingerprints) Clone() Fingerprints {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// Encode serializes the map for a cache value.
func (f Fingerprints) Encode() (string, error) {
	if f == nil {
		f = Fingerprints{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeFingerprints parses a cache value. An empty value means no prior
// state and yields nil.
func DecodeFingerprints(s string) (*Fingerprints, error) {
	if s == "" {
		return nil, nil
	}
	var f Fingerprints
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, err
	}
	if f == nil {
		f = Fingerprints{}
	}
	return &f, nil
}

// Fingerprint digests a group's salt and the sorted content ids of its
// records. Input order does not matter.
func Fingerprint(salt string, ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	h := sha256.New()
	h.Write([]byte(salt))
	for _, id := range sorted {
		if id == "" {
			id = missingID
		}
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Result is the outcome of Plan.
type Result struct {
	// Needed holds the ids of groups to rebuild.
	Needed map[string]bool
	// Fingerprints is the new map, to be persisted only after deploy succeeds.
	Fingerprints Fingerprints

	previous *Fingerprints
}

// Unchanged reports whether the new fingerprints equal the persisted ones
// exactly. With no persisted state it is always false.
func (r Result) Unchanged() bool {
	return r.previous != nil && maps.Equal(r.Fingerprints, *r.previous)
}

// NeededIDs returns the needed group ids sorted.
func (r Result) NeededIDs() []string {
	return slices.Sorted(maps.Keys(r.Needed))
}

// IsNeeded reports whether group id must be rebuilt.
func (r Result) IsNeeded(id string) bool { return r.Needed[id] }

// Plan fingerprints every group from its record identities and marks groups
// whose fingerprint is new or differs from persisted. A nil persisted map
// means nothing was built before, so every group is needed.
func Plan(groups []content.Group, identities []content.Identity, persisted *Fingerprints) Result {
	ids := make(map[string][]string, len(groups))
	for _, ident := range identities {
		ids[ident.GroupID] = append(ids[ident.GroupID], ident.UUID)
	}

	res := Result{
		Needed:       make(map[string]bool),
		Fingerprints: make(Fingerprints, len(groups)),
	}
	if persisted != nil {
		prev := persisted.Clone()
		if prev == nil {
			prev = Fingerprints{}
		}
		res.previous = &prev
	}

	for _, g := range groups {
		fp := Fingerprint(g.Salt, ids[g.ID])
		res.Fingerprints[g.ID] = fp
		if persisted == nil {
			res.Needed[g.ID] = true
			continue
		}
		if old, ok := (*persisted)[g.ID]; !ok || old != fp {
			res.Needed[g.ID] = true
		}
	}
	return res
}
