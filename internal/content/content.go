// Package content defines the groups and records a site is built from, and
// the Store interface the build cycle queries them through.
package content

import (
	"context"
	"strings"
)

// Group is a named collection of records sharing one hierarchy schema and one
// output subtree. It is immutable for the duration of a build cycle.
type Group struct {
	ID              string
	Name            string
	PathPart        string
	Hierarchy       []string
	Salt            string
	FixedNavEntries bool
	HeaderURL       string
	Status          int
}

// NewGroup returns a group with its path part derived from name.
func NewGroup(id, name string) Group {
	return Group{
		ID:              id,
		Name:            name,
		PathPart:        PathPartOf(name),
		FixedNavEntries: true,
	}
}

// PathPartOf lower-cases name and replaces spaces with hyphens.
func PathPartOf(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// Record is one raw content unit belonging to a group.
type Record struct {
	// ID addresses the record in single-page mode.
	ID      string
	GroupID string
	// UUID is the content-unique-id used for change detection only.
	UUID string
	Meta Meta
	Body string
}

// Identity is the cheap projection of a record used for fingerprinting.
type Identity struct {
	GroupID string
	UUID    string
}

// Filter narrows store queries.
type Filter struct {
	// Names limits groups by name. Empty means all groups.
	Names []string
	// MinStatus, when set, excludes groups and records below the threshold.
	MinStatus *int
}

// Store is a content backend.
type Store interface {
	// Groups returns the groups matching f.
	Groups(ctx context.Context, f Filter) ([]Group, error)
	// Identities returns (group, uuid) pairs of the non-deleted eligible
	// records of groupIDs without loading bodies.
	Identities(ctx context.Context, groupIDs []string, f Filter) ([]Identity, error)
	// Records returns the non-deleted eligible records of groupIDs.
	Records(ctx context.Context, groupIDs []string, f Filter) ([]Record, error)
	// Record looks a single record up by ID. A miss is a not_found error.
	Record(ctx context.Context, id string) (Record, error)
	Close(ctx context.Context) error
}

// SplitBlog separates blog posts from regular records.
func SplitBlog(records []Record) (pages, posts []Record) {
	for _, r := range records {
		if r.Meta.IsBlog() {
			posts = append(posts, r)
		} else {
			pages = append(pages, r)
		}
	}
	return pages, posts
}

// ByGroup buckets records by group id.
func ByGroup(records []Record) map[string][]Record {
	out := make(map[string][]Record)
	for _, r := range records {
		out[r.GroupID] = append(out[r.GroupID], r)
	}
	return out
}

// Eligible reports whether a record passes the deletion and status gates.
func Eligible(r Record, f Filter) bool {
	if r.Meta.Deleted() {
		return false
	}
	if f.MinStatus != nil {
		status, ok := r.Meta.Status()
		if !ok || status < *f.MinStatus {
			return false
		}
	}
	return true
}
