package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventReview mirrors the 'event_reviews' table. Rating bounds (1..5) are
// enforced at the handler before anything reaches this layer.
type EventReview struct {
	ID         string         `json:"id"`
	EventID    string         `json:"event_id"`
	ReviewerID string         `json:"reviewer_id"`
	Rating     int            `json:"rating"`
	Comment    sql.NullString `json:"comment"`
	CreatedAt  time.Time      `json:"created_at"`
}

type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewColumns = `id, event_id, reviewer_id, rating, comment, created_at`

func scanReview(row interface{ Scan(...any) error }) (*EventReview, error) {
	var v EventReview
	err := row.Scan(&v.ID, &v.EventID, &v.ReviewerID, &v.Rating, &v.Comment,
		&v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts a review and reads it back. One review per reviewer per
// event; a second attempt surfaces ErrDuplicate.
func (r *ReviewRepo) Create(ctx context.Context, v *EventReview) error {
	v.ID = uuid.New().String()
	const q = `INSERT INTO event_reviews (id, event_id, reviewer_id, rating, comment)
		VALUES (?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, v.ID, v.EventID, v.ReviewerID,
		v.Rating, v.Comment)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicate
		}
		return err
	}
	fresh, err := r.GetByID(ctx, v.ID)
	if err != nil {
		return err
	}
	*v = *fresh
	return nil
}

// GetByID fetches a review by id.
func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*EventReview, error) {
	return scanReview(r.db.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM event_reviews WHERE id=? LIMIT 1", id))
}

// ListByEvent returns a window of an event's reviews, newest first, plus
// the total count.
func (r *ReviewRepo) ListByEvent(ctx context.Context, eventID string, skip, limit int) ([]*EventReview, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_reviews WHERE event_id=?", eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewColumns+" FROM event_reviews WHERE event_id=? ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		eventID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*EventReview
	for rows.Next() {
		v, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// Delete removes a review. Only the reviewer or an elevated role may do so;
// ownership is checked here so handlers cannot forget it. Absent ids report
// ErrNotFound, a foreign owner ErrForbidden.
func (r *ReviewRepo) Delete(ctx context.Context, id, requesterID string, elevated bool) error {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !elevated && v.ReviewerID != requesterID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM event_reviews WHERE id=?", id)
	return err
}
