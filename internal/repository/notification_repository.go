package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification mirrors the 'notifications' table. Rows are written by the
// queue consumer when registration or approval events arrive, and read by
// the owning user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	EventID   sql.NullString `json:"event_id"`
	Message   string         `json:"message"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = `id, user_id, event_id, message, ` + "`read`" + `, created_at`

// Create inserts a notification and reads it back.
func (r *NotificationRepo) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, event_id, message) VALUES (?,?,?,?)",
		n.ID, n.UserID, n.EventID, n.Message)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id=?",
		n.ID).Scan(&n.ID, &n.UserID, &n.EventID, &n.Message, &n.Read, &n.CreatedAt)
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id=? ORDER BY created_at DESC, id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.Message,
			&n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read; only the owner may flip it.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET `read`=TRUE WHERE id=? AND user_id=?",
		id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var owner string
		err := r.db.QueryRowContext(ctx,
			"SELECT user_id FROM notifications WHERE id=?", id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != userID {
			return ErrForbidden
		}
	}
	return nil
}

// Delete removes a notification owned by userID. Idempotent for absent ids.
func (r *NotificationRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
