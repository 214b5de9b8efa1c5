package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Tag mirrors the 'tags' table; events and tags are linked many-to-many
// through 'event_tags'.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TagRepo struct{ db *sql.DB }

func NewTagRepo(db *sql.DB) *TagRepo { return &TagRepo{db: db} }

// GetOrCreate returns the tag with the given name, creating it when absent.
// Names are normalized to lower case so "Music" and "music" are one tag.
func (r *TagRepo) GetOrCreate(ctx context.Context, name string) (*Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.New("tag name is empty")
	}
	t := &Tag{ID: uuid.New().String(), Name: name}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tags (id, name) VALUES (?,?)", t.ID, t.Name)
	if err != nil && !isDuplicateErr(err) {
		return nil, err
	}
	// Either freshly inserted or already present; read the canonical row.
	err = r.db.QueryRowContext(ctx,
		"SELECT id, name FROM tags WHERE name=?", name).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Attach links a tag to an event. Linking twice is a no-op.
func (r *TagRepo) Attach(ctx context.Context, eventID, tagID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO event_tags (event_id, tag_id) VALUES (?,?)", eventID, tagID)
	if isDuplicateErr(err) {
		return nil
	}
	return err
}

// Detach unlinks a tag from an event; ErrNotFound when no link existed.
func (r *TagRepo) Detach(ctx context.Context, eventID, tagID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM event_tags WHERE event_id=? AND tag_id=?", eventID, tagID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns the tags attached to an event, alphabetically.
func (r *TagRepo) ListByEvent(ctx context.Context, eventID string) ([]*Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name FROM tags t
		 JOIN event_tags et ON et.tag_id = t.id
		 WHERE et.event_id=? ORDER BY t.name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
