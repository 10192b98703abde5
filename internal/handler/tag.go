// Package handler contains the HTTP request handlers for the record service.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers do not contain business rules; they are the glue between HTTP
// and internal/service.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/px/internal/apperror"
	"github.com/sakif/px/internal/model"
	"github.com/sakif/px/internal/service"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// TagHandler binds the /id, /search and /list routes to the TagService.
// It only parses requests and shapes responses; authorization happens in
// middleware before any of these run.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// RESPONSE SHAPES:
// meta is always written as a JSON object, never as an encoded string.
// links appear only on the single-tag fetch.

type createdResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Meta      model.Meta `json:"meta"`
	CreatedAt int64      `json:"created_at"`
}

type tagResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Meta      model.Meta `json:"meta"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
}

type linkResponse struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type tagDetailResponse struct {
	tagResponse
	Links []linkResponse `json:"links"`
}

func toTagResponse(t *model.Tag) tagResponse {
	return tagResponse{
		ID:        t.ID,
		Name:      t.Name,
		Meta:      t.Meta,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type createRequest struct {
	Name *string     `json:"name"`
	Meta *model.Meta `json:"meta"`
}

type linkRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// HandleCreate allocates a new tag.
//
// HTTP: POST /id
// REQUEST BODY: {"name": "Echo project", "meta": {...}}
//
// name must be present (it may be the empty string); meta is optional.
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Name == nil {
		WriteError(w, apperror.ValidationFailed("name", "name is required"))
		return
	}

	var meta model.Meta
	if req.Meta != nil {
		meta = *req.Meta
	}

	tag, err := h.tags.Create(r.Context(), *req.Name, meta)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{
		ID:        tag.ID,
		Name:      tag.Name,
		Meta:      tag.Meta,
		CreatedAt: tag.CreatedAt,
	})
}

// HandleGet returns one tag with its links.
//
// HTTP: GET /id/{id}
func (h *TagHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	tag, err := h.tags.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	links := make([]linkResponse, 0, len(tag.Links))
	for _, l := range tag.Links {
		links = append(links, linkResponse{Type: l.Type, URL: l.URL})
	}

	writeJSON(w, http.StatusOK, tagDetailResponse{
		tagResponse: toTagResponse(tag),
		Links:       links,
	})
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /id/{id}
// REQUEST BODY: {"name"?: "...", "meta"?: {...}}
func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var upd model.TagUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.tags.Update(r.Context(), id, upd); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// HandleDelete removes a tag and its links. Unknown ids still answer ok.
//
// HTTP: DELETE /id/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.tags.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// HandleAddLink attaches a link.
//
// HTTP: POST /id/{id}/link
// REQUEST BODY: {"type": "github", "url": "https://github.com/x/echo"}
func (h *TagHandler) HandleAddLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var req linkRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.tags.AddLink(r.Context(), id, req.Type, req.URL); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok)
}

// HandleRemoveLink drops every link of one type.
//
// HTTP: DELETE /id/{id}/link/{type}
func (h *TagHandler) HandleRemoveLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	linkType, err := pathParam(r, "type")
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.tags.RemoveLink(r.Context(), id, linkType); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// HandleSearch matches names by substring.
//
// HTTP: GET /search?q=echo
func (h *TagHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]tagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, toTagResponse(&tags[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleList returns the most recently touched tags, without meta or links.
//
// HTTP: GET /list
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	if tags == nil {
		tags = []model.TagSummary{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// pathParam returns a route parameter with percent-escapes decoded. chi
// matches on the raw path when the request carries escapes such as %2F, so
// its parameters arrive still escaped.
func pathParam(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", apperror.ValidationFailed(name, fmt.Sprintf("malformed %s in path", name))
	}
	return v, nil
}

// decodeBody reads a single JSON object from the request body.
// Any failure, including a body over maxBodyBytes, is a validation error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body",
				fmt.Sprintf("request body must be %d bytes or less", maxErr.Limit))
		case errors.Is(err, model.ErrMetaNotObject):
			return apperror.ValidationFailed("meta", err.Error())
		default:
			return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
		}
	}
	return nil
}
