// Package cache keeps a client-side mirror of tags and serves tag operations
// through it.
//
// The mirror is a best-effort acceleration layer, never a source of truth.
// Writes always go to the service first and only touch the mirror once the
// service has accepted them. Reads prefer the service and fall back to the
// mirror, marked stale, when the service cannot be reached.
package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/px/internal/localstate"
	"github.com/sakif/px/internal/model"
)

// Result caps, matching the service.
const (
	MaxSearchResults = 50
	MaxListResults   = 100
)

// Mirror is the id → last-known tag mapping persisted in a localstate.Store.
// Every method loads the mapping, changes it and saves it back; a CLI
// process does a handful of these at most.
type Mirror struct {
	store localstate.Store
}

// NewMirror returns a mirror persisted in store.
func NewMirror(store localstate.Store) *Mirror {
	return &Mirror{store: store}
}

// Get returns the cached tag for id.
func (m *Mirror) Get(id string) (model.Tag, bool, error) {
	tags, err := m.store.LoadCache()
	if err != nil {
		return model.Tag{}, false, err
	}
	tag, ok := tags[id]
	return tag, ok, nil
}

// Put stores tag, overwriting any entry for the same id.
func (m *Mirror) Put(tag model.Tag) error {
	return m.update(func(tags map[string]model.Tag) {
		tags[tag.ID] = tag
	})
}

// Merge overwrites the record fields of cached entries with the given tags
// and adds missing ones. Cached links are kept when the incoming tag carries
// none, since search results never include links; they stay marked outdated
// if the record moved on since they were fetched.
func (m *Mirror) Merge(incoming []model.Tag) error {
	return m.update(func(tags map[string]model.Tag) {
		for _, t := range incoming {
			if t.Links == nil {
				prev, ok := tags[t.ID]
				t.Links = prev.Links
				t.DetailsOutdated = !ok || prev.DetailsOutdated || prev.UpdatedAt != t.UpdatedAt
			}
			tags[t.ID] = t
		}
	})
}

// Modify applies fn to the cached entry for id, if there is one.
func (m *Mirror) Modify(id string, fn func(*model.Tag)) error {
	return m.update(func(tags map[string]model.Tag) {
		tag, ok := tags[id]
		if !ok {
			return
		}
		fn(&tag)
		tags[id] = tag
	})
}

// Remove drops id from the mirror.
func (m *Mirror) Remove(id string) error {
	return m.update(func(tags map[string]model.Tag) {
		delete(tags, id)
	})
}

// Replace discards the whole mapping and stores exactly tags.
func (m *Mirror) Replace(tags []model.Tag) error {
	next := make(map[string]model.Tag, len(tags))
	for _, t := range tags {
		next[t.ID] = t
	}
	if err := m.store.SaveCache(next); err != nil {
		return fmt.Errorf("cache: saving mirror: %w", err)
	}
	return nil
}

// All returns every cached tag in recency order.
func (m *Mirror) All() ([]model.Tag, error) {
	tags, err := m.store.LoadCache()
	if err != nil {
		return nil, err
	}
	out := make([]model.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, t)
	}
	sortByRecency(out)
	return out, nil
}

// Scan is the local equivalent of the service's search: a case-insensitive
// substring match on name, most recently updated first, capped at
// MaxSearchResults.
func (m *Mirror) Scan(query string) ([]model.Tag, error) {
	all, err := m.All()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	out := make([]model.Tag, 0)
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			out = append(out, t)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out, nil
}

func (m *Mirror) update(fn func(map[string]model.Tag)) error {
	tags, err := m.store.LoadCache()
	if err != nil {
		return fmt.Errorf("cache: loading mirror: %w", err)
	}
	fn(tags)
	if err := m.store.SaveCache(tags); err != nil {
		return fmt.Errorf("cache: saving mirror: %w", err)
	}
	return nil
}

// sortByRecency orders by updated_at descending; ties are broken by id so
// the order is stable for one cache state.
func sortByRecency(tags []model.Tag) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].UpdatedAt != tags[j].UpdatedAt {
			return tags[i].UpdatedAt > tags[j].UpdatedAt
		}
		return tags[i].ID > tags[j].ID
	})
}
