package content

import (
	"context"
	"slices"
	"sync"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

// MemoryStore is an in-process Store. The filesystem store loads into one,
// and tests use it directly.
type MemoryStore struct {
	mu      sync.RWMutex
	groups  []Group
	records []Record
}

// NewMemoryStore returns a store holding groups and records.
func NewMemoryStore(groups []Group, records []Record) *MemoryStore {
	return &MemoryStore{groups: slices.Clone(groups), records: slices.Clone(records)}
}

// Replace swaps the store contents.
func (s *MemoryStore) Replace(groups []Group, records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = slices.Clone(groups)
	s.records = slices.Clone(records)
}

// Add appends records.
func (s *MemoryStore) Add(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

func (s *MemoryStore) Groups(_ context.Context, f Filter) ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Group
	for _, g := range s.groups {
		if len(f.Names) > 0 && !slices.Contains(f.Names, g.Name) {
			continue
		}
		if f.MinStatus != nil && g.Status < *f.MinStatus {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *MemoryStore) Identities(ctx context.Context, groupIDs []string, f Filter) ([]Identity, error) {
	records, err := s.Records(ctx, groupIDs, f)
	if err != nil {
		return nil, err
	}
	out := make([]Identity, 0, len(records))
	for _, r := range records {
		out = append(out, Identity{GroupID: r.GroupID, UUID: r.UUID})
	}
	return out, nil
}

func (s *MemoryStore) Records(_ context.Context, groupIDs []string, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if !slices.Contains(groupIDs, r.GroupID) || !Eligible(r, f) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) Record(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id && !r.Meta.Deleted() {
			return r, nil
		}
	}
	return Record{}, errors.NotFoundError("page not found").WithContext("id", id).Build()
}

func (s *MemoryStore) Close(context.Context) error { return nil }
