package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/px/internal/apperror"
	"github.com/sakif/px/internal/localstate"
	"github.com/sakif/px/internal/model"
)

// Remote is the record service as seen by the cache. *client.Client
// implements it.
type Remote interface {
	Create(ctx context.Context, name string, meta model.Meta) (*model.Tag, error)
	Get(ctx context.Context, id string) (*model.Tag, error)
	Update(ctx context.Context, id string, upd model.TagUpdate) error
	Delete(ctx context.Context, id string) error
	AddLink(ctx context.Context, id, linkType, url string) error
	RemoveLink(ctx context.Context, id, linkType string) error
	Search(ctx context.Context, query string) ([]model.Tag, error)
	List(ctx context.Context) ([]model.TagSummary, error)
}

// ErrOffline is returned by write operations when the service is not to be
// contacted. It matches apperror.ErrNetwork.
var ErrOffline = &apperror.AppError{
	Err:     apperror.ErrNetwork,
	Message: "offline: this operation needs the service",
}

// TagResult is a single tag and whether it came from the mirror instead of
// the service.
type TagResult struct {
	Tag   model.Tag
	Stale bool
}

// SearchResult is a search answer. Stale results come from the local scan
// and may still contain tags that were deleted remotely.
type SearchResult struct {
	Tags  []model.Tag
	Stale bool
}

// ListResult is a listing answer.
type ListResult struct {
	Tags  []model.TagSummary
	Stale bool
}

// Tags runs tag operations against the service and keeps the mirror in step.
type Tags struct {
	remote  Remote
	mirror  *Mirror
	logger  *slog.Logger
	offline bool
}

// Option configures Tags.
type Option func(*Tags)

// WithOffline skips the service entirely: reads answer from the mirror and
// writes fail with ErrOffline.
func WithOffline(offline bool) Option {
	return func(t *Tags) {
		t.offline = offline
	}
}

// New creates Tags over remote, persisting the mirror in store.
func New(remote Remote, store localstate.Store, logger *slog.Logger, opts ...Option) *Tags {
	t := &Tags{
		remote: remote,
		mirror: NewMirror(store),
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mirror exposes the underlying mirror.
func (t *Tags) Mirror() *Mirror {
	return t.mirror
}

// Create allocates a tag remotely and caches it.
func (t *Tags) Create(ctx context.Context, name string, meta model.Meta) (*model.Tag, error) {
	if t.offline {
		return nil, ErrOffline
	}
	tag, err := t.remote.Create(ctx, name, meta)
	if err != nil {
		return nil, err
	}
	t.save("create", t.mirror.Put(*tag))
	return tag, nil
}

// Get fetches a tag. If the service cannot be reached, the cached copy is
// returned marked stale; with nothing cached the transport error surfaces.
// A remote NotFound is returned as-is and leaves the mirror untouched.
func (t *Tags) Get(ctx context.Context, id string) (*TagResult, error) {
	if t.offline {
		return t.cachedTag(id, ErrOffline)
	}

	tag, err := t.remote.Get(ctx, id)
	if err != nil {
		if apperror.IsUnreachable(err) {
			t.logger.Debug("service unreachable, using cache", slog.String("id", id), slog.String("error", err.Error()))
			return t.cachedTag(id, err)
		}
		return nil, err
	}

	t.save("get", t.mirror.Put(*tag))
	return &TagResult{Tag: *tag}, nil
}

func (t *Tags) cachedTag(id string, cause error) (*TagResult, error) {
	tag, ok, err := t.mirror.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cause
	}
	return &TagResult{Tag: tag, Stale: true}, nil
}

// Update applies a partial update remotely, then refreshes the cached copy.
func (t *Tags) Update(ctx context.Context, id string, upd model.TagUpdate) error {
	if t.offline {
		return ErrOffline
	}
	if err := t.remote.Update(ctx, id, upd); err != nil {
		return err
	}
	t.refresh(ctx, id, func(tag *model.Tag) {
		if upd.Name != nil {
			tag.Name = *upd.Name
		}
		if upd.Meta != nil {
			tag.Meta = *upd.Meta
		}
	})
	return nil
}

// Delete removes a tag remotely and, once that succeeded, from the mirror.
func (t *Tags) Delete(ctx context.Context, id string) error {
	if t.offline {
		return ErrOffline
	}
	if err := t.remote.Delete(ctx, id); err != nil {
		return err
	}
	t.save("delete", t.mirror.Remove(id))
	return nil
}

// AddLink attaches a link remotely, then refreshes the cached copy.
func (t *Tags) AddLink(ctx context.Context, id, linkType, url string) error {
	if t.offline {
		return ErrOffline
	}
	if err := t.remote.AddLink(ctx, id, linkType, url); err != nil {
		return err
	}
	t.refresh(ctx, id, func(tag *model.Tag) {
		tag.Links = append(tag.Links, model.Link{Type: linkType, URL: url})
	})
	return nil
}

// RemoveLink drops links of one type remotely, then refreshes the cached copy.
func (t *Tags) RemoveLink(ctx context.Context, id, linkType string) error {
	if t.offline {
		return ErrOffline
	}
	if err := t.remote.RemoveLink(ctx, id, linkType); err != nil {
		return err
	}
	t.refresh(ctx, id, func(tag *model.Tag) {
		kept := make([]model.Link, 0, len(tag.Links))
		for _, l := range tag.Links {
			if l.Type != linkType {
				kept = append(kept, l)
			}
		}
		tag.Links = kept
	})
	return nil
}

// Search returns the remote result when the service answers and merges it
// into the mirror. When the service cannot be reached, the local scan is
// returned marked stale.
func (t *Tags) Search(ctx context.Context, query string) (*SearchResult, error) {
	local, err := t.mirror.Scan(query)
	if err != nil {
		return nil, err
	}
	if t.offline {
		return &SearchResult{Tags: local, Stale: true}, nil
	}

	remote, err := t.remote.Search(ctx, query)
	if err != nil {
		if apperror.IsUnreachable(err) {
			t.logger.Debug("service unreachable, using local scan", slog.String("error", err.Error()))
			return &SearchResult{Tags: local, Stale: true}, nil
		}
		return nil, err
	}
	if remote == nil {
		remote = []model.Tag{}
	}

	t.save("search", t.mirror.Merge(remote))
	return &SearchResult{Tags: remote}, nil
}

// List returns the remote listing and rebuilds the mirror from it. Entries
// not in the listing are evicted. Meta and links of a surviving entry are
// kept when its updated_at has not moved.
func (t *Tags) List(ctx context.Context) (*ListResult, error) {
	if t.offline {
		return t.cachedList()
	}

	summaries, err := t.remote.List(ctx)
	if err != nil {
		if apperror.IsUnreachable(err) {
			t.logger.Debug("service unreachable, listing cache", slog.String("error", err.Error()))
			return t.cachedList()
		}
		return nil, err
	}
	if summaries == nil {
		summaries = []model.TagSummary{}
	}

	previous, err := t.mirror.store.LoadCache()
	if err != nil {
		previous = map[string]model.Tag{}
	}
	rebuilt := make([]model.Tag, 0, len(summaries))
	for _, s := range summaries {
		tag := model.Tag{
			ID:              s.ID,
			Name:            s.Name,
			Meta:            model.EmptyMeta(),
			CreatedAt:       s.CreatedAt,
			UpdatedAt:       s.UpdatedAt,
			DetailsOutdated: true,
		}
		// The listing carries no meta or links. Keep the last known ones.
		if prev, ok := previous[s.ID]; ok {
			tag.Meta = prev.Meta
			tag.Links = prev.Links
			tag.DetailsOutdated = prev.DetailsOutdated || prev.UpdatedAt != s.UpdatedAt
		}
		rebuilt = append(rebuilt, tag)
	}

	t.save("list", t.mirror.Replace(rebuilt))
	return &ListResult{Tags: summaries}, nil
}

// Sync rebuilds the mirror from the listing, fetching every listed tag in
// full. It returns the number of tags now cached. Sync never falls back to
// the mirror: an unreachable service is an error.
func (t *Tags) Sync(ctx context.Context) (int, error) {
	if t.offline {
		return 0, ErrOffline
	}

	summaries, err := t.remote.List(ctx)
	if err != nil {
		return 0, err
	}

	full := make([]model.Tag, 0, len(summaries))
	for _, s := range summaries {
		tag, err := t.remote.Get(ctx, s.ID)
		if errors.Is(err, apperror.ErrNotFound) {
			// Deleted between the listing and the fetch.
			continue
		}
		if err != nil {
			return 0, err
		}
		full = append(full, *tag)
	}

	if err := t.mirror.Replace(full); err != nil {
		return 0, err
	}
	return len(full), nil
}

func (t *Tags) cachedList() (*ListResult, error) {
	all, err := t.mirror.All()
	if err != nil {
		return nil, err
	}
	if len(all) > MaxListResults {
		all = all[:MaxListResults]
	}
	out := make([]model.TagSummary, 0, len(all))
	for i := range all {
		out = append(out, all[i].Summary())
	}
	return &ListResult{Tags: out, Stale: true}, nil
}

// refresh re-fetches id after a successful write. When the fetch fails the
// write is applied to the cached copy instead, if one exists.
func (t *Tags) refresh(ctx context.Context, id string, apply func(*model.Tag)) {
	tag, err := t.remote.Get(ctx, id)
	if err == nil {
		t.save("refresh", t.mirror.Put(*tag))
		return
	}
	t.logger.Debug("refresh after write failed, patching cache",
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	t.save("patch", t.mirror.Modify(id, apply))
}

// save logs a mirror write failure. The remote operation already succeeded,
// so it is not reported to the caller.
func (t *Tags) save(op string, err error) {
	if err != nil {
		t.logger.Warn("cache update failed", slog.String("op", op), slog.String("error", err.Error()))
	}
}
