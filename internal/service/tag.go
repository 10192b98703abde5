// Package service contains the business rules that sit between the HTTP
// handlers and the record store.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates input, logs business events
//	Repository (data layer)  → reads/writes SQLite
//
// TagService takes a repository.TagRepository interface, not *sqlite.DB,
// so tests can hand it any implementation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/px/internal/apperror"
	"github.com/sakif/px/internal/model"
	"github.com/sakif/px/internal/repository"
)

// Validation limits.
const (
	MaxNameLength     = 200
	MaxLinkTypeLength = 64
	MaxLinkURLLength  = 2048
	MaxMetaBytes      = 64 << 10
	MaxQueryLength    = 200
)

// TagService handles business logic for tags and links.
type TagService struct {
	repo   repository.TagRepository
	logger *slog.Logger
}

// NewTagService creates a new TagService.
func NewTagService(repo repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{
		repo:   repo,
		logger: logger,
	}
}

// Create allocates a fresh id and stores a tag under it.
// An empty name is allowed; meta defaults to {}.
func (s *TagService) Create(ctx context.Context, name string, meta model.Meta) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateMeta(meta); err != nil {
		return nil, err
	}

	tag, err := s.repo.Allocate(ctx, name, meta)
	if err != nil {
		if errors.Is(err, apperror.ErrExhausted) {
			s.logger.Error("id allocation exhausted", slog.String("name", name))
			return nil, err
		}
		s.logger.Error("failed to allocate tag",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("allocating tag: %w", err)
	}

	s.logger.Info("tag allocated",
		slog.String("id", tag.ID),
		slog.String("name", tag.Name),
	)
	return tag, nil
}

// Get returns the tag with its links. Returns apperror.ErrNotFound if absent.
func (s *TagService) Get(ctx context.Context, id string) (*model.Tag, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}

	tag, err := s.repo.Get(ctx, id)
	if err != nil {
		// NotFound is a normal answer, not worth an error log line.
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to get tag", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil, err
	}
	return tag, nil
}

// Update applies a partial update: only the non-nil fields change.
func (s *TagService) Update(ctx context.Context, id string, upd model.TagUpdate) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validateName(name); err != nil {
			return err
		}
		upd.Name = &name
	}
	if upd.Meta != nil {
		if err := validateMeta(*upd.Meta); err != nil {
			return err
		}
	}

	if err := s.repo.Update(ctx, id, upd); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update tag", slog.String("id", id), slog.String("error", err.Error()))
		}
		return err
	}

	s.logger.Info("tag updated",
		slog.String("id", id),
		slog.Bool("name", upd.Name != nil),
		slog.Bool("meta", upd.Meta != nil),
	)
	return nil
}

// Delete removes a tag and its links. Deleting an unknown id succeeds.
func (s *TagService) Delete(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete tag", slog.String("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("deleting tag: %w", err)
	}

	s.logger.Info("tag deleted", slog.String("id", id))
	return nil
}

// AddLink attaches a typed link to an existing tag.
func (s *TagService) AddLink(ctx context.Context, id, linkType, url string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	linkType = strings.TrimSpace(linkType)
	url = strings.TrimSpace(url)
	if err := validateLinkType(linkType); err != nil {
		return err
	}
	if url == "" {
		return apperror.ValidationFailed("url", "link url is required")
	}
	if utf8.RuneCountInString(url) > MaxLinkURLLength {
		return apperror.ValidationFailed("url",
			fmt.Sprintf("link url must be %d characters or less", MaxLinkURLLength))
	}

	if err := s.repo.AddLink(ctx, id, linkType, url); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to add link", slog.String("id", id), slog.String("error", err.Error()))
		}
		return err
	}

	s.logger.Info("link added", slog.String("id", id), slog.String("type", linkType))
	return nil
}

// RemoveLink drops every link of linkType from the tag. Nothing to remove is fine.
func (s *TagService) RemoveLink(ctx context.Context, id, linkType string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	linkType = strings.TrimSpace(linkType)
	if err := validateLinkType(linkType); err != nil {
		return err
	}

	if err := s.repo.RemoveLink(ctx, id, linkType); err != nil {
		s.logger.Error("failed to remove link", slog.String("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("removing link: %w", err)
	}

	s.logger.Info("links removed", slog.String("id", id), slog.String("type", linkType))
	return nil
}

// Search returns up to repository.MaxSearchResults tags whose name contains query.
func (s *TagService) Search(ctx context.Context, query string) ([]model.Tag, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, apperror.ValidationFailed("q",
			fmt.Sprintf("query must be %d characters or less", MaxQueryLength))
	}

	tags, err := s.repo.Search(ctx, query, repository.ListOptions{Limit: repository.MaxSearchResults})
	if err != nil {
		s.logger.Error("failed to search tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("searching tags: %w", err)
	}
	return tags, nil
}

// List returns the most recently touched tags as summaries.
func (s *TagService) List(ctx context.Context) ([]model.TagSummary, error) {
	tags, err := s.repo.List(ctx, repository.ListOptions{Limit: repository.MaxListResults})
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperror.ValidationFailed("id", "tag id is required")
	}
	return id, nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("tag name must be %d characters or less", MaxNameLength))
	}
	return nil
}

func validateMeta(meta model.Meta) error {
	if len(meta) > MaxMetaBytes {
		return apperror.ValidationFailed("meta",
			fmt.Sprintf("meta must be %d bytes or less", MaxMetaBytes))
	}
	return nil
}

func validateLinkType(linkType string) error {
	if linkType == "" {
		return apperror.ValidationFailed("type", "link type is required")
	}
	if utf8.RuneCountInString(linkType) > MaxLinkTypeLength {
		return apperror.ValidationFailed("type",
			fmt.Sprintf("link type must be %d characters or less", MaxLinkTypeLength))
	}
	return nil
}
