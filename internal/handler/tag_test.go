package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/px/internal/handler"
	"github.com/sakif/px/internal/idgen"
	sqliteRepo "github.com/sakif/px/internal/repository/sqlite"
	"github.com/sakif/px/internal/service"
)

// newTestRouter serves the tag handlers without auth over an in-memory store.
func newTestRouter(t *testing.T, opts ...sqliteRepo.Option) http.Handler {
	t.Helper()
	db, err := sqliteRepo.New(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := handler.NewTagHandler(service.NewTagService(db, logger), logger)

	r := chi.NewRouter()
	r.Post("/id", h.HandleCreate)
	r.Get("/id/{id}", h.HandleGet)
	r.Put("/id/{id}", h.HandleUpdate)
	r.Delete("/id/{id}", h.HandleDelete)
	r.Post("/id/{id}/link", h.HandleAddLink)
	r.Delete("/id/{id}/link/{type}", h.HandleRemoveLink)
	r.Get("/search", h.HandleSearch)
	r.Get("/list", h.HandleList)
	r.Get("/health", handler.NewHealthHandler(db, logger).HandleHealth)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestHandleCreate(t *testing.T) {
	t.Run("returns the allocated tag", func(t *testing.T) {
		r := newTestRouter(t, sqliteRepo.WithGenerator(idgen.Sequence("pxabc2345")))

		rr := serve(r, http.MethodPost, "/id", `{"name":"Echo project","meta":{"b":1,"a":2}}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		raw := rr.Body.String()
		assert.Contains(t, raw, `"meta":{"b":1,"a":2}`, "meta key order survives")

		body := decode(t, rr)
		assert.Equal(t, "pxabc2345", body["id"])
		assert.Equal(t, "Echo project", body["name"])
		assert.NotZero(t, body["created_at"])
		assert.NotContains(t, body, "updated_at")
	})

	t.Run("meta defaults to empty object", func(t *testing.T) {
		r := newTestRouter(t)

		rr := serve(r, http.MethodPost, "/id", `{"name":""}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, map[string]any{}, decode(t, rr)["meta"])
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"meta":{}}`},
		{"empty body", ""},
		{"invalid json", `{"name":`},
		{"meta not an object", `{"name":"x","meta":[1,2]}`},
		{"name not a string", `{"name":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t)

			rr := serve(r, http.MethodPost, "/id", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, handler.CodeValidation, decode(t, rr)["error"])
		})
	}

	t.Run("body too large", func(t *testing.T) {
		r := newTestRouter(t)

		big := `{"name":"` + strings.Repeat("x", 2<<20) + `"}`
		rr := serve(r, http.MethodPost, "/id", big)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("id space exhausted", func(t *testing.T) {
		r := newTestRouter(t, sqliteRepo.WithGenerator(func() string { return "pxsame222" }))
		require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/id", `{"name":"a"}`).Code)

		rr := serve(r, http.MethodPost, "/id", `{"name":"b"}`)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, handler.CodeExhausted, decode(t, rr)["error"])
	})
}

func TestHandleGet(t *testing.T) {
	r := newTestRouter(t, sqliteRepo.WithGenerator(idgen.Sequence("pxabc2345")))
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/id", `{"name":"x"}`).Code)

	t.Run("found without links", func(t *testing.T) {
		rr := serve(r, http.MethodGet, "/id/pxabc2345", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"links":[]`)
	})

	t.Run("not found", func(t *testing.T) {
		rr := serve(r, http.MethodGet, "/id/pxnothere", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, handler.CodeNotFound, body["error"])
		assert.Contains(t, body["message"], "pxnothere")
	})
}

func TestHandleUpdate(t *testing.T) {
	r := newTestRouter(t, sqliteRepo.WithGenerator(idgen.Sequence("pxabc2345")))
	require.Equal(t, http.StatusCreated,
		serve(r, http.MethodPost, "/id", `{"name":"before","meta":{"keep":true}}`).Code)

	rr := serve(r, http.MethodPut, "/id/pxabc2345", `{"name":"after"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["ok"])

	body := decode(t, serve(r, http.MethodGet, "/id/pxabc2345", ""))
	assert.Equal(t, "after", body["name"])
	assert.Equal(t, map[string]any{"keep": true}, body["meta"], "meta untouched by a name-only update")

	rr = serve(r, http.MethodPut, "/id/pxnothere", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleDelete(t *testing.T) {
	r := newTestRouter(t, sqliteRepo.WithGenerator(idgen.Sequence("pxabc2345")))
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/id", `{"name":"x"}`).Code)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/id/pxabc2345", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/id/pxabc2345", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/id/pxabc2345", "").Code, "deleting twice is fine")
}

func TestHandleLinks(t *testing.T) {
	r := newTestRouter(t, sqliteRepo.WithGenerator(idgen.Sequence("pxabc2345")))
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/id", `{"name":"x"}`).Code)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"added", "/id/pxabc2345/link", `{"type":"github","url":"https://github.com/x/echo"}`, http.StatusCreated},
		{"missing type", "/id/pxabc2345/link", `{"url":"https://x"}`, http.StatusBadRequest},
		{"missing url", "/id/pxabc2345/link", `{"type":"doc"}`, http.StatusBadRequest},
		{"unknown tag", "/id/pxnothere/link", `{"type":"doc","url":"https://x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(r, http.MethodPost, tt.path, tt.body).Code)
		})
	}

	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/id/pxabc2345/link/github", "").Code)
	assert.Contains(t, serve(r, http.MethodGet, "/id/pxabc2345", "").Body.String(), `"links":[]`)
}

func TestHandleSearchAndList(t *testing.T) {
	r := newTestRouter(t)

	t.Run("empty store answers empty arrays", func(t *testing.T) {
		assert.JSONEq(t, `[]`, serve(r, http.MethodGet, "/search?q=x", "").Body.String())
		assert.JSONEq(t, `[]`, serve(r, http.MethodGet, "/list", "").Body.String())
	})

	for _, name := range []string{"Echo project", "echo docs", "other"} {
		require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/id", `{"name":"`+name+`"}`).Code)
	}

	t.Run("search", func(t *testing.T) {
		rr := serve(r, http.MethodGet, "/search?q=ECHO", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var tags []map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&tags))
		require.Len(t, tags, 2)
		assert.Equal(t, "echo docs", tags[0]["name"], "most recently updated first")
		assert.NotContains(t, tags[0], "links")
		assert.Contains(t, tags[0], "meta")
	})

	t.Run("list", func(t *testing.T) {
		rr := serve(r, http.MethodGet, "/list", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var tags []map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&tags))
		require.Len(t, tags, 3)
		assert.Equal(t, "other", tags[0]["name"])
		assert.NotContains(t, tags[0], "meta")
	})
}

func TestHandleHealth(t *testing.T) {
	r := newTestRouter(t)

	rr := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}
