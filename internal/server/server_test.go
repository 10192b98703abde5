package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/px/internal/auth"
	sqliteRepo "github.com/sakif/px/internal/repository/sqlite"
)

const (
	adminKey = "admin-secret"
	agentKey = "agent-secret"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(db, auth.NewGate(adminKey, agentKey), logger))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, key, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func createTag(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	status, body := do(t, srv, http.MethodPost, "/id", agentKey, `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, status)
	return body["id"].(string)
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
}

func TestAuthorizationMatrix(t *testing.T) {
	srv := newTestServer(t)
	id := createTag(t, srv, "matrix")

	routes := []struct {
		name      string
		method    string
		path      string
		body      string
		adminOnly bool
	}{
		{"create", http.MethodPost, "/id", `{"name":"x"}`, false},
		{"get", http.MethodGet, "/id/" + id, "", false},
		{"add link", http.MethodPost, "/id/" + id + "/link", `{"type":"doc","url":"https://x"}`, false},
		{"search", http.MethodGet, "/search?q=m", "", false},
		{"list", http.MethodGet, "/list", "", false},
		{"update", http.MethodPut, "/id/" + id, `{"name":"y"}`, true},
		{"remove link", http.MethodDelete, "/id/" + id + "/link/doc", "", true},
	}

	for _, rt := range routes {
		t.Run(rt.name+" without credential", func(t *testing.T) {
			status, body := do(t, srv, rt.method, rt.path, "", rt.body)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "unauthorized", body["error"])
		})

		t.Run(rt.name+" with unknown credential", func(t *testing.T) {
			status, _ := do(t, srv, rt.method, rt.path, "nope", rt.body)
			assert.Equal(t, http.StatusForbidden, status)
		})

		t.Run(rt.name+" as agent", func(t *testing.T) {
			status, body := do(t, srv, rt.method, rt.path, agentKey, rt.body)
			if rt.adminOnly {
				assert.Equal(t, http.StatusForbidden, status)
				assert.Equal(t, "forbidden", body["error"])
			} else {
				assert.Less(t, status, 300)
			}
		})

		t.Run(rt.name+" as admin", func(t *testing.T) {
			status, _ := do(t, srv, rt.method, rt.path, adminKey, rt.body)
			assert.Less(t, status, 300)
		})
	}

	t.Run("delete as agent is forbidden", func(t *testing.T) {
		status, _ := do(t, srv, http.MethodDelete, "/id/"+id, agentKey, "")
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = do(t, srv, http.MethodGet, "/id/"+id, agentKey, "")
		assert.Equal(t, http.StatusOK, status, "tag must survive")
	})

	t.Run("delete as admin", func(t *testing.T) {
		status, body := do(t, srv, http.MethodDelete, "/id/"+id, adminKey, "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["ok"])
	})
}

func TestAPIKeyHeaderAccepted(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/list", nil)
	require.NoError(t, err)
	req.Header.Set(auth.APIKeyHeader, agentKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown path", http.MethodGet, "/nope"},
		{"unknown method", http.MethodPatch, "/id/pxabc2345"},
		{"bare id path", http.MethodGet, "/id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, tt.method, tt.path, adminKey, "")
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, "not_found", body["error"])
		})
	}
}

func TestLinkLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := createTag(t, srv, "Echo project")

	status, _ := do(t, srv, http.MethodPost, "/id/"+id+"/link", agentKey,
		`{"type":"github","url":"https://github.com/x/echo"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, srv, http.MethodGet, "/id/"+id, agentKey, "")
	require.Equal(t, http.StatusOK, status)
	links := body["links"].([]any)
	require.Len(t, links, 1)
	assert.Equal(t, "github", links[0].(map[string]any)["type"])

	status, _ = do(t, srv, http.MethodDelete, "/id/"+id+"/link/github", adminKey, "")
	require.Equal(t, http.StatusOK, status)

	_, body = do(t, srv, http.MethodGet, "/id/"+id, agentKey, "")
	assert.Empty(t, body["links"])
	assert.NotNil(t, body["links"], "links must be an empty array, not null")
}
