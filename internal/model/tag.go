// Package model defines the data structures shared by the record service
// and the client.
//
// Timestamps are plain int64 milliseconds since the Unix epoch. That is what
// goes over the wire and into the database, so nothing has to agree on a
// time zone or a textual format.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Tag is the record an allocated id identifies.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Meta      Meta   `json:"meta"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Links     []Link `json:"links,omitempty"`

	// DetailsOutdated is set only in the client cache: Meta and Links were
	// last fetched before UpdatedAt, or never fetched at all.
	DetailsOutdated bool `json:"details_outdated,omitempty"`
}

// Link is a typed pointer from a tag to an external resource.
// Several links of the same type may hang off one tag.
type Link struct {
	TagID     string `json:"tag_id,omitempty"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// TagSummary is the lightweight projection returned by list: no meta, no links.
type TagSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// TagUpdate is a partial update. Nil fields are left unchanged.
type TagUpdate struct {
	Name *string `json:"name,omitempty"`
	Meta *Meta   `json:"meta,omitempty"`
}

// Summary drops meta and links.
func (t *Tag) Summary() TagSummary {
	return TagSummary{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// Meta is a freeform JSON object attached to a tag.
//
// WHY RAW BYTES INSTEAD OF map[string]any?
// The service never looks inside meta, it only stores and returns it.
// Keeping the encoded object means key order survives the round trip and
// numbers are not squashed into float64. The only rule enforced is that the
// value is a JSON object.
type Meta json.RawMessage

// ErrMetaNotObject is returned when meta is valid JSON but not an object.
var ErrMetaNotObject = errors.New("meta must be a JSON object")

// EmptyMeta is the value stored for tags created without meta.
func EmptyMeta() Meta {
	return Meta("{}")
}

// ParseMeta validates raw JSON and returns it compacted.
func ParseMeta(raw []byte) (Meta, error) {
	var m Meta
	if err := m.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSON writes the object as-is, or {} when unset.
func (m Meta) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return []byte(m), nil
}

// UnmarshalJSON accepts any JSON object. A JSON null leaves meta unset.
func (m *Meta) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrMetaNotObject
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return err
	}
	*m = Meta(buf.Bytes())
	return nil
}

// String returns the encoded object.
func (m Meta) String() string {
	if len(m) == 0 {
		return "{}"
	}
	return string(m)
}

// Map decodes meta for callers that want to inspect it.
func (m Meta) Map() (map[string]any, error) {
	out := make(map[string]any)
	if len(m) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(m, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Time converts a millisecond timestamp back to a time.Time.
func Time(ms int64) time.Time {
	return time.UnixMilli(ms)
}
