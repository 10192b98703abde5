package localstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/px/internal/model"
)

func envMap(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestResolve(t *testing.T) {
	base := &Config{APIURL: "http://file", AdminKey: "file-admin", AgentKey: "file-agent"}

	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{"no overrides", nil, *base},
		{"api key overrides both keys", map[string]string{EnvAPIKey: "env-key"},
			Config{APIURL: "http://file", AdminKey: "env-key", AgentKey: "env-key"}},
		{"api url", map[string]string{EnvAPIURL: "http://env"},
			Config{APIURL: "http://env", AdminKey: "file-admin", AgentKey: "file-agent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(base, envMap(tt.env))
			assert.Equal(t, tt.want, *got)
		})
	}

	t.Run("does not modify input", func(t *testing.T) {
		Resolve(base, envMap(map[string]string{EnvAPIKey: "x"}))
		assert.Equal(t, "file-admin", base.AdminKey)
	})

	t.Run("empty url falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultAPIURL, Resolve(&Config{}, envMap(nil)).APIURL)
	})
}

func TestDir(t *testing.T) {
	dir, err := Dir(envMap(map[string]string{EnvHome: "/tmp/pxhome", "XDG_CONFIG_HOME": "/xdg"}))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pxhome", dir)

	dir, err = Dir(envMap(map[string]string{"XDG_CONFIG_HOME": "/xdg"}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "px"), dir)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "****", MaskKey("abc"))
	assert.Equal(t, "****cret", MaskKey("admin-secret"))
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("empty state loads as defaults", func(t *testing.T) {
		s := newStore(t)

		cfg, err := s.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, DefaultAPIURL, cfg.APIURL)

		active, err := s.ActiveProject()
		require.NoError(t, err)
		assert.Empty(t, active)

		cache, err := s.LoadCache()
		require.NoError(t, err)
		assert.NotNil(t, cache)
		assert.Empty(t, cache)
	})

	t.Run("config round trip", func(t *testing.T) {
		s := newStore(t)
		want := &Config{APIURL: "http://px.internal:9000", AdminKey: "a", AgentKey: "b"}

		require.NoError(t, s.SaveConfig(want))
		got, err := s.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("active project", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.SetActiveProject("pxabc2345"))
		active, err := s.ActiveProject()
		require.NoError(t, err)
		assert.Equal(t, "pxabc2345", active)
	})

	t.Run("cache round trip", func(t *testing.T) {
		s := newStore(t)
		tags := map[string]model.Tag{
			"pxabc2345": {
				ID:        "pxabc2345",
				Name:      "Echo project",
				Meta:      model.Meta(`{"z":1,"a":2}`),
				CreatedAt: 1,
				UpdatedAt: 2,
				Links:     []model.Link{{Type: "github", URL: "https://github.com/x/echo"}},
			},
		}

		require.NoError(t, s.SaveCache(tags))
		got, err := s.LoadCache()
		require.NoError(t, err)
		require.Contains(t, got, "pxabc2345")
		assert.Equal(t, "Echo project", got["pxabc2345"].Name)
		assert.Equal(t, `{"z":1,"a":2}`, got["pxabc2345"].Meta.String())
		assert.Equal(t, tags["pxabc2345"].Links, got["pxabc2345"].Links)

		require.NoError(t, s.SaveCache(map[string]model.Tag{}))
		got, err = s.LoadCache()
		require.NoError(t, err)
		assert.Empty(t, got, "save replaces the whole mirror")
	})
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewFileStore(filepath.Join(t.TempDir(), "px"))
	})

	t.Run("config file is yaml and owner-only", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		require.NoError(t, s.SaveConfig(&Config{APIURL: "http://x", AdminKey: "k"}))

		data, err := os.ReadFile(s.ConfigPath())
		require.NoError(t, err)
		assert.Contains(t, string(data), "api_url: http://x")
		assert.Contains(t, string(data), "admin_key: k")
		assert.NotContains(t, string(data), "agent_key")

		info, err := os.Stat(s.ConfigPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		require.NoError(t, s.SaveCache(map[string]model.Tag{"pxabc2345": {ID: "pxabc2345"}}))
		require.NoError(t, s.SetActiveProject("pxabc2345"))

		entries, err := os.ReadDir(s.Dir())
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.ElementsMatch(t, []string{ActiveFileName, CacheFileName}, names)
	})

	t.Run("corrupt config is an error", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		require.NoError(t, os.WriteFile(s.ConfigPath(), []byte("api_url: [unclosed"), 0600))

		_, err := s.LoadConfig()
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})

	t.Run("cache is copied", func(t *testing.T) {
		s := NewMemoryStore()
		tags := map[string]model.Tag{"pxabc2345": {ID: "pxabc2345", Name: "before"}}
		require.NoError(t, s.SaveCache(tags))

		tags["pxabc2345"] = model.Tag{ID: "pxabc2345", Name: "after"}
		got, err := s.LoadCache()
		require.NoError(t, err)
		assert.Equal(t, "before", got["pxabc2345"].Name)
	})
}
