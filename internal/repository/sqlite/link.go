package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/px/internal/apperror"
	"github.com/sakif/px/internal/model"
)

// AddLink attaches a link to an existing tag.
//
// The existence check and the insert share a transaction, and the foreign
// key on links.tag_id catches a tag deleted in between. The tag's
// updated_at is left alone: link writes never touch the tags row.
func (db *DB) AddLink(ctx context.Context, id, linkType, url string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning link insert for %s: %w", id, err)
	}
	defer tx.Rollback()

	ok, err := existsIn(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("tag", id)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO links (id, tag_id, type, url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		xid.New().String(), id, linkType, url, db.nowMillis(),
	)
	if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
		return apperror.NotFound("tag", id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: inserting link for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing link for %s: %w", id, err)
	}
	return nil
}

// RemoveLink deletes every link of the given type from the tag.
// No matching links, or no such tag, is not an error.
func (db *DB) RemoveLink(ctx context.Context, id, linkType string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM links WHERE tag_id = ? AND type = ?`,
		id, linkType,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing %s links from %s: %w", linkType, id, err)
	}
	return nil
}

// linksFor loads a tag's links oldest first. The xid id breaks ties between
// links created in the same millisecond.
func (db *DB) linksFor(ctx context.Context, id string) ([]model.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag_id, type, url, created_at
		 FROM links
		 WHERE tag_id = ?
		 ORDER BY created_at, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links of %s: %w", id, err)
	}
	defer rows.Close()

	links := make([]model.Link, 0)
	for rows.Next() {
		var l model.Link
		if err := rows.Scan(&l.TagID, &l.Type, &l.URL, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning link row: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating links: %w", err)
	}

	return links, nil
}
