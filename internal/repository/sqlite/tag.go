package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/px/internal/apperror"
	"github.com/sakif/px/internal/model"
	"github.com/sakif/px/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

// Allocate draws ids from the generator until it finds one that is free,
// then inserts the new tag with created_at = updated_at = now.
//
// COLLISIONS:
// Each attempt first checks whether the id exists. Another writer can still
// take the same id between the check and the INSERT, so a primary-key
// violation on insert counts as a collision too. Both kinds of collision
// spend one of the MaxAllocateAttempts tries. Running out returns
// apperror.ErrExhausted; nothing retries it automatically.
func (db *DB) Allocate(ctx context.Context, name string, meta model.Meta) (*model.Tag, error) {
	if len(meta) == 0 {
		meta = model.EmptyMeta()
	}

	for attempt := 1; attempt <= repository.MaxAllocateAttempts; attempt++ {
		id := db.generate()

		taken, err := db.exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		now := db.nowMillis()
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO tags (id, name, meta, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, name, meta.String(), now, now,
		)
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite: allocating tag: %w", err)
		}

		return &model.Tag{
			ID:        id,
			Name:      name,
			Meta:      meta,
			CreatedAt: now,
			UpdatedAt: now,
			Links:     []model.Link{},
		}, nil
	}

	return nil, apperror.ExhaustedIDSpace(repository.MaxAllocateAttempts)
}

// Get returns the tag with its links in insertion order.
func (db *DB) Get(ctx context.Context, id string) (*model.Tag, error) {
	var (
		tag  model.Tag
		meta string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, meta, created_at, updated_at
		 FROM tags
		 WHERE id = ?`,
		id,
	).Scan(&tag.ID, &tag.Name, &meta, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}
	tag.Meta = model.Meta(meta)

	links, err := db.linksFor(ctx, id)
	if err != nil {
		return nil, err
	}
	tag.Links = links

	return &tag, nil
}

// Update applies a partial update. updated_at always moves, even when the
// update carries no fields, and never drops below created_at.
func (db *DB) Update(ctx context.Context, id string, upd model.TagUpdate) error {
	sets := []string{"updated_at = MAX(?, created_at)"}
	args := []any{db.nowMillis()}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Meta != nil {
		meta := *upd.Meta
		if len(meta) == 0 {
			meta = model.EmptyMeta()
		}
		sets = append(sets, "meta = ?")
		args = append(args, meta.String())
	}
	args = append(args, id)

	result, err := db.conn.ExecContext(ctx,
		"UPDATE tags SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating tag %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("tag", id)
	}

	return nil
}

// Delete removes the tag and every link it owns in one transaction.
// The ON DELETE CASCADE on links covers the same ground; deleting the links
// explicitly keeps the operation atomic even on a connection where foreign
// keys were never switched on. Deleting an unknown id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE tag_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting links of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of %s: %w", id, err)
	}
	return nil
}

// Search matches query as a case-insensitive substring of the name.
// An empty query matches every tag. Links are not loaded.
func (db *DB) Search(ctx context.Context, query string, opts repository.ListOptions) ([]model.Tag, error) {
	limit := clampLimit(opts.Limit, repository.MaxSearchResults)

	// instr() rather than LIKE so % and _ in the query are matched literally.
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, meta, created_at, updated_at
		 FROM tags
		 WHERE instr(px_fold(name), px_fold(?)) > 0
		 ORDER BY updated_at DESC, rowid DESC
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0, limit)
	for rows.Next() {
		var (
			t    model.Tag
			meta string
		)
		if err := rows.Scan(&t.ID, &t.Name, &meta, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		t.Meta = model.Meta(meta)
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	return tags, nil
}

// List returns the most recently touched tags without meta or links.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.TagSummary, error) {
	limit := clampLimit(opts.Limit, repository.MaxListResults)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at
		 FROM tags
		 ORDER BY updated_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.TagSummary, 0, limit)
	for rows.Next() {
		var s model.TagSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	return tags, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) exists(ctx context.Context, id string) (bool, error) {
	return existsIn(ctx, db.conn, id)
}

func existsIn(ctx context.Context, q queryer, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking tag %s: %w", id, err)
	}
	return true, nil
}

// clampLimit applies the store-wide cap. Zero or negative means "the cap".
func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// isConstraint reports whether err is the given SQLite extended constraint
// code. A bare primary code (the low byte) also matches.
func isConstraint(err error, code int) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	c := se.Code()
	return c == code || c == code&0xff
}
