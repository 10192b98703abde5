package localstate

import (
	"sync"

	"github.com/sakif/px/internal/model"
)

// MemoryStore keeps local state in memory.
type MemoryStore struct {
	mu     sync.Mutex
	config *Config
	active string
	cache  map[string]model.Tag
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: map[string]model.Tag{}}
}

func (s *MemoryStore) LoadConfig() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return NewDefault(), nil
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *MemoryStore) SaveConfig(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	s.config = &c
	return nil
}

func (s *MemoryStore) ActiveProject() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *MemoryStore) SetActiveProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
	return nil
}

func (s *MemoryStore) LoadCache() (map[string]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTags(s.cache), nil
}

func (s *MemoryStore) SaveCache(tags map[string]model.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = copyTags(tags)
	return nil
}

func copyTags(in map[string]model.Tag) map[string]model.Tag {
	out := make(map[string]model.Tag, len(in))
	for id, t := range in {
		if t.Links != nil {
			t.Links = append([]model.Link(nil), t.Links...)
		}
		out[id] = t
	}
	return out
}
