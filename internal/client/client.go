// Package client talks to the px record service over HTTP.
//
// Every call has a bounded timeout. Error responses are mapped back to the
// apperror sentinels the service started from, so callers can use
// errors.Is(err, apperror.ErrNotFound) without caring about status codes.
// A service that cannot be reached at all yields apperror.ErrNetwork or
// apperror.ErrTimeout; see apperror.IsUnreachable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/px/internal/apperror"
	"github.com/sakif/px/internal/model"
)

// DefaultTimeout bounds every request unless WithTimeout says otherwise.
const DefaultTimeout = 10 * time.Second

// ErrServer is matched by responses the service itself could not handle
// (internal_error or an unrecognised failure).
var ErrServer = errors.New("server error")

// Client is an HTTP client for the record service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	adminKey   string
	agentKey   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP timeout for the client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAdminKey sets the credential sent on admin operations.
func WithAdminKey(key string) ClientOption {
	return func(c *Client) {
		c.adminKey = key
	}
}

// WithAgentKey sets the credential sent on agent operations.
func WithAgentKey(key string) ClientOption {
	return func(c *Client) {
		c.agentKey = key
	}
}

// WithHTTPClient replaces the underlying http.Client. The timeout of the
// given client is kept.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the service at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type role int

const (
	public role = iota
	agent
	admin
)

// credential picks the key for an operation. Agent operations fall back to
// the admin key, which the service accepts for everything.
func (c *Client) credential(r role) string {
	switch r {
	case admin:
		return c.adminKey
	case agent:
		if c.agentKey != "" {
			return c.agentKey
		}
		return c.adminKey
	default:
		return ""
	}
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", public, nil, nil)
}

// Create allocates a new tag. The returned tag has updated_at = created_at
// and no links, which is what the service just stored.
func (c *Client) Create(ctx context.Context, name string, meta model.Meta) (*model.Tag, error) {
	req := struct {
		Name string      `json:"name"`
		Meta *model.Meta `json:"meta,omitempty"`
	}{Name: name}
	if len(meta) > 0 {
		req.Meta = &meta
	}

	var created model.Tag
	if err := c.do(ctx, http.MethodPost, "/id", agent, req, &created); err != nil {
		return nil, err
	}
	created.UpdatedAt = created.CreatedAt
	created.Links = []model.Link{}
	return &created, nil
}

// Get fetches a tag with its links.
func (c *Client) Get(ctx context.Context, id string) (*model.Tag, error) {
	var tag model.Tag
	if err := c.do(ctx, http.MethodGet, tagPath(id), agent, nil, &tag); err != nil {
		return nil, err
	}
	if tag.Links == nil {
		tag.Links = []model.Link{}
	}
	return &tag, nil
}

// Update applies a partial update. Requires the admin key.
func (c *Client) Update(ctx context.Context, id string, upd model.TagUpdate) error {
	return c.do(ctx, http.MethodPut, tagPath(id), admin, upd, nil)
}

// Delete removes a tag and its links. Requires the admin key.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, tagPath(id), admin, nil, nil)
}

// AddLink attaches a link to a tag.
func (c *Client) AddLink(ctx context.Context, id, linkType, linkURL string) error {
	req := struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}{Type: linkType, URL: linkURL}
	return c.do(ctx, http.MethodPost, tagPath(id)+"/link", agent, req, nil)
}

// RemoveLink drops every link of linkType. Requires the admin key.
func (c *Client) RemoveLink(ctx context.Context, id, linkType string) error {
	return c.do(ctx, http.MethodDelete, tagPath(id)+"/link/"+url.PathEscape(linkType), admin, nil, nil)
}

// Search returns tags whose name contains query, most recently updated first.
func (c *Client) Search(ctx context.Context, query string) ([]model.Tag, error) {
	var tags []model.Tag
	if err := c.do(ctx, http.MethodGet, "/search?q="+url.QueryEscape(query), agent, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// List returns summaries of the most recently updated tags.
func (c *Client) List(ctx context.Context) ([]model.TagSummary, error) {
	var tags []model.TagSummary
	if err := c.do(ctx, http.MethodGet, "/list", agent, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func tagPath(id string) string {
	return "/id/" + url.PathEscape(id)
}

// do sends one request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, r role, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if key := c.credential(r); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return apperror.Timeout(err)
		}
		return fmt.Errorf("client: failed to parse response: %w", err)
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return apperror.Timeout(err)
	}
	return apperror.Network(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseError turns an error response into an *apperror.AppError wrapping the
// sentinel that matches the service's error code (or, failing that, the
// status code).
func parseError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &payload)

	message := payload.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &apperror.AppError{
		Err:     sentinelFor(resp.StatusCode, payload.Error),
		Message: message,
	}
}

func sentinelFor(status int, code string) error {
	switch code {
	case "validation_error":
		return apperror.ErrValidation
	case "unauthorized":
		return apperror.ErrUnauthorized
	case "forbidden":
		return apperror.ErrForbidden
	case "not_found":
		return apperror.ErrNotFound
	case "conflict":
		return apperror.ErrConflict
	case "id_space_exhausted":
		return apperror.ErrExhausted
	}

	switch status {
	case http.StatusBadRequest:
		return apperror.ErrValidation
	case http.StatusUnauthorized:
		return apperror.ErrUnauthorized
	case http.StatusForbidden:
		return apperror.ErrForbidden
	case http.StatusNotFound:
		return apperror.ErrNotFound
	case http.StatusConflict:
		return apperror.ErrConflict
	default:
		return ErrServer
	}
}
