package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event approval workflow states.
const (
	EventStatusPending  = "PENDING"
	EventStatusApproved = "APPROVED"
	EventStatusRejected = "REJECTED"
)

// Event mirrors the 'events' table. Status tracks the approval workflow;
// Published controls public visibility and is independent of status so a
// creator can unpublish an approved event without losing its approval.
type Event struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description sql.NullString `json:"description"`
	Location    sql.NullString `json:"location"`
	StartAt     time.Time      `json:"start_at"`
	EndAt       time.Time      `json:"end_at"`
	Published   bool           `json:"published"`
	Status      string         `json:"status"`
	CreatorID   string         `json:"creator_id"`
	QRCodePath  sql.NullString `json:"qr_code_path"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// EventPatch enumerates the mutable event fields for partial updates.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	StartAt     *time.Time
	EndAt       *time.Time
}

// EventFilter narrows List results. Zero values mean "any".
type EventFilter struct {
	CreatorID     string
	PublishedOnly bool
	Status        string
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, location, start_at, end_at,
	published, status, creator_id, qr_code_path, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartAt,
		&e.EndAt, &e.Published, &e.Status, &e.CreatorID, &e.QRCodePath,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts an event in PENDING state and reads the row back for the
// generated timestamps.
func (r *EventRepo) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New().String()
	if e.Status == "" {
		e.Status = EventStatusPending
	}
	const q = `INSERT INTO events
		(id, title, description, location, start_at, end_at, published, status, creator_id)
		VALUES (?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Title, e.Description,
		e.Location, e.StartAt, e.EndAt, e.Published, e.Status, e.CreatorID)
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// GetByID fetches an event by id.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1", id))
}

// List returns a window of events matching the filter, newest first,
// together with the total count for pagination.
func (r *EventRepo) List(ctx context.Context, f EventFilter, skip, limit int) ([]*Event, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if f.CreatorID != "" {
		where = append(where, "creator_id=?")
		args = append(args, f.CreatorID)
	}
	if f.PublishedOnly {
		where = append(where, "published=TRUE")
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events"+cond+
			" ORDER BY start_at DESC, id LIMIT ? OFFSET ?",
		append(args, limit, skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Update applies a patch and returns the refreshed event.
func (r *EventRepo) Update(ctx context.Context, id string, p EventPatch) (*Event, error) {
	set := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if p.Title != nil {
		set = append(set, "title=?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		set = append(set, "description=?")
		args = append(args, *p.Description)
	}
	if p.Location != nil {
		set = append(set, "location=?")
		args = append(args, *p.Location)
	}
	if p.StartAt != nil {
		set = append(set, "start_at=?")
		args = append(args, *p.StartAt)
	}
	if p.EndAt != nil {
		set = append(set, "end_at=?")
		args = append(args, *p.EndAt)
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	q := "UPDATE events SET " + strings.Join(set, ", ") +
		", updated_at=CURRENT_TIMESTAMP WHERE id=?"
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetPublished flips public visibility.
func (r *EventRepo) SetPublished(ctx context.Context, id string, published bool) (*Event, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET published=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		published, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// SetStatus records the outcome of the approval workflow.
func (r *EventRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetQRCodePath stores the path of a generated event QR code.
func (r *EventRepo) SetQRCodePath(ctx context.Context, id, path string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE events SET qr_code_path=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		path, id)
	return err
}

// Delete removes an event and all dependent records (sections with their
// registrations, approval, reviews, tag links, notifications) inside a
// single transaction. A second delete of the same id reports ErrNotFound.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE id=?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		err = ErrNotFound
		return err
	}

	steps := []string{
		`DELETE er FROM event_registrations er
		 JOIN event_sections es ON es.id = er.section_id
		 WHERE es.event_id = ?`,
		`DELETE FROM event_sections WHERE event_id = ?`,
		`DELETE FROM event_approvals WHERE event_id = ?`,
		`DELETE FROM event_reviews WHERE event_id = ?`,
		`DELETE FROM event_tags WHERE event_id = ?`,
		`DELETE FROM notifications WHERE event_id = ?`,
		`DELETE FROM events WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}
