// Package localstate persists the client's local state: the config record,
// the active project pointer and the cache mirror.
//
// Callers depend on the Store interface. FileStore keeps everything under
// one directory; MemoryStore is for tests.
package localstate

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/px/internal/model"
)

// DefaultAPIURL is used when neither the config file nor the environment
// names a service.
const DefaultAPIURL = "http://localhost:8080"

// Environment variables read by Resolve and Dir.
const (
	EnvHome   = "PX_HOME"
	EnvAPIKey = "PX_API_KEY"
	EnvAPIURL = "PX_API_URL"
)

// Config is the client configuration record.
type Config struct {
	APIURL   string `yaml:"api_url" json:"api_url"`
	AdminKey string `yaml:"admin_key,omitempty" json:"admin_key,omitempty"`
	AgentKey string `yaml:"agent_key,omitempty" json:"agent_key,omitempty"`
}

// Store reads and writes local state. Missing state is not an error: an
// absent config loads as defaults, an absent pointer as "", an absent cache
// as an empty map.
type Store interface {
	LoadConfig() (*Config, error)
	SaveConfig(cfg *Config) error

	ActiveProject() (string, error)
	SetActiveProject(id string) error

	LoadCache() (map[string]model.Tag, error)
	SaveCache(tags map[string]model.Tag) error
}

// NewDefault returns the config used when no file exists.
func NewDefault() *Config {
	return &Config{APIURL: DefaultAPIURL}
}

// Resolve returns a copy of cfg with environment overrides applied.
// PX_API_KEY replaces both keys; PX_API_URL replaces the URL.
func Resolve(cfg *Config, getenv func(string) string) *Config {
	out := *cfg
	if key := strings.TrimSpace(getenv(EnvAPIKey)); key != "" {
		out.AdminKey = key
		out.AgentKey = key
	}
	if u := strings.TrimSpace(getenv(EnvAPIURL)); u != "" {
		out.APIURL = u
	}
	if out.APIURL == "" {
		out.APIURL = DefaultAPIURL
	}
	return &out
}

// Dir returns the state directory: $PX_HOME, else $XDG_CONFIG_HOME/px,
// else ~/.config/px.
func Dir(getenv func(string) string) (string, error) {
	if home := getenv(EnvHome); home != "" {
		return home, nil
	}
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "px"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "px"), nil
}

// MaskKey hides all but the last four characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
