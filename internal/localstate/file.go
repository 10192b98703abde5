package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/px/internal/model"
)

// File names inside the state directory.
const (
	ConfigFileName = "config.yaml"
	ActiveFileName = "active"
	CacheFileName  = "cache.json"
)

// FileStore keeps local state as plain files under one directory.
// Every write goes to a temp file that is renamed into place, so a crash
// never leaves a half-written cache behind.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the state directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// ConfigPath returns the path of config.yaml.
func (s *FileStore) ConfigPath() string {
	return filepath.Join(s.dir, ConfigFileName)
}

func (s *FileStore) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(s.ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return NewDefault(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstate: reading config: %w", err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("localstate: %s: %w", s.ConfigPath(), err)
	}
	return cfg, nil
}

func (s *FileStore) SaveConfig(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("localstate: encoding config: %w", err)
	}
	// Keys are secrets: owner-only.
	return s.write(ConfigFileName, data, 0600)
}

func (s *FileStore) ActiveProject() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ActiveFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("localstate: reading active project: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) SetActiveProject(id string) error {
	return s.write(ActiveFileName, []byte(id+"\n"), 0644)
}

func (s *FileStore) LoadCache() (map[string]model.Tag, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, CacheFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]model.Tag{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstate: reading cache: %w", err)
	}

	tags := map[string]model.Tag{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("localstate: decoding cache: %w", err)
	}
	return tags, nil
}

func (s *FileStore) SaveCache(tags map[string]model.Tag) error {
	if tags == nil {
		tags = map[string]model.Tag{}
	}
	data, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return fmt.Errorf("localstate: encoding cache: %w", err)
	}
	return s.write(CacheFileName, data, 0644)
}

// write replaces name atomically: temp file in the same directory, then rename.
func (s *FileStore) write(name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("localstate: creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("localstate: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("localstate: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("localstate: writing %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("localstate: setting permissions on %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("localstate: replacing %s: %w", name, err)
	}
	return nil
}
