package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventApproval mirrors the 'event_approvals' table. At most one approval
// record exists per event (unique index on event_id); re-reviewing replaces
// the verdict in place.
type EventApproval struct {
	ID              string         `json:"id"`
	EventID         string         `json:"event_id"`
	Approved        bool           `json:"approved"`
	ApprovalReason  sql.NullString `json:"approval_reason"`
	RejectionReason sql.NullString `json:"rejection_reason"`
	ReviewedByID    string         `json:"reviewed_by_id"`
	ReviewedAt      time.Time      `json:"reviewed_at"`
}

type ApprovalRepo struct{ db *sql.DB }

func NewApprovalRepo(db *sql.DB) *ApprovalRepo { return &ApprovalRepo{db: db} }

const approvalColumns = `id, event_id, approved, approval_reason,
	rejection_reason, reviewed_by_id, reviewed_at`

// Upsert records a verdict for an event, replacing a previous one, and also
// moves the event's workflow status inside the same transaction so the two
// tables cannot drift apart.
func (r *ApprovalRepo) Upsert(ctx context.Context, a *EventApproval) error {
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
		"SELECT COUNT(*) FROM events WHERE id=?", a.EventID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		err = ErrNotFound
		return err
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	const q = `INSERT INTO event_approvals
		(id, event_id, approved, approval_reason, rejection_reason, reviewed_by_id, reviewed_at)
		VALUES (?,?,?,?,?,?,CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
		approved=VALUES(approved), approval_reason=VALUES(approval_reason),
		rejection_reason=VALUES(rejection_reason),
		reviewed_by_id=VALUES(reviewed_by_id), reviewed_at=CURRENT_TIMESTAMP`
	if _, err = tx.ExecContext(ctx, q, a.ID, a.EventID, a.Approved,
		a.ApprovalReason, a.RejectionReason, a.ReviewedByID); err != nil {
		return err
	}

	status := EventStatusRejected
	if a.Approved {
		status = EventStatusApproved
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE events SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		status, a.EventID); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx,
		"SELECT "+approvalColumns+" FROM event_approvals WHERE event_id=?",
		a.EventID).Scan(&a.ID, &a.EventID, &a.Approved, &a.ApprovalReason,
		&a.RejectionReason, &a.ReviewedByID, &a.ReviewedAt)
	return err
}

// GetByEventID fetches the approval record for an event.
func (r *ApprovalRepo) GetByEventID(ctx context.Context, eventID string) (*EventApproval, error) {
	var a EventApproval
	err := r.db.QueryRowContext(ctx,
		"SELECT "+approvalColumns+" FROM event_approvals WHERE event_id=? LIMIT 1",
		eventID).Scan(&a.ID, &a.EventID, &a.Approved, &a.ApprovalReason,
		&a.RejectionReason, &a.ReviewedByID, &a.ReviewedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Delete removes an event's approval record, resetting the event to
// PENDING.
func (r *ApprovalRepo) Delete(ctx context.Context, eventID string) error {
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

	var res sql.Result
	if res, err = tx.ExecContext(ctx,
		"DELETE FROM event_approvals WHERE event_id=?", eventID); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE events SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		EventStatusPending, eventID)
	return err
}
