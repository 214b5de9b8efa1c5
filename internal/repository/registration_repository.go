package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventRegistration mirrors the 'event_registrations' table.
type EventRegistration struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	SectionID    string       `json:"section_id"`
	RegisteredAt time.Time    `json:"registered_at"`
	Attended     bool         `json:"attended"`
	AttendedAt   sql.NullTime `json:"attended_at"`
}

type RegistrationRepo struct{ db *sql.DB }

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, user_id, section_id, registered_at, attended, attended_at`

func scanRegistration(row interface{ Scan(...any) error }) (*EventRegistration, error) {
	var g EventRegistration
	err := row.Scan(&g.ID, &g.UserID, &g.SectionID, &g.RegisteredAt,
		&g.Attended, &g.AttendedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Create registers a user for a section. The insert runs in a transaction
// with a capacity check so a full section cannot be oversubscribed by two
// concurrent requests reading the same count: the count happens after the
// row lock taken by the unique (user_id, section_id) insert. A duplicate
// registration surfaces ErrDuplicate, a full section ErrConflict, a missing
// section ErrNotFound.
func (r *RegistrationRepo) Create(ctx context.Context, g *EventRegistration) error {
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

	var capacity sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT capacity FROM event_sections WHERE id=? FOR UPDATE",
		g.SectionID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}

	if capacity.Valid {
		var taken int64
		if err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM event_registrations WHERE section_id=?",
			g.SectionID).Scan(&taken); err != nil {
			return err
		}
		if taken >= capacity.Int64 {
			err = ErrConflict
			return err
		}
	}

	g.ID = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO event_registrations (id, user_id, section_id) VALUES (?,?,?)",
		g.ID, g.UserID, g.SectionID); err != nil {
		if isDuplicateErr(err) {
			err = ErrDuplicate
		}
		return err
	}

	err = tx.QueryRowContext(ctx,
		"SELECT "+registrationColumns+" FROM event_registrations WHERE id=?",
		g.ID).Scan(&g.ID, &g.UserID, &g.SectionID, &g.RegisteredAt,
		&g.Attended, &g.AttendedAt)
	return err
}

// GetByID fetches a registration by id.
func (r *RegistrationRepo) GetByID(ctx context.Context, id string) (*EventRegistration, error) {
	return scanRegistration(r.db.QueryRowContext(ctx,
		"SELECT "+registrationColumns+" FROM event_registrations WHERE id=? LIMIT 1", id))
}

// ListByUser returns all registrations belonging to a user.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID string) ([]*EventRegistration, error) {
	return r.list(ctx,
		"SELECT "+registrationColumns+" FROM event_registrations WHERE user_id=? ORDER BY registered_at, id",
		userID)
}

// ListBySection returns all registrations for a section.
func (r *RegistrationRepo) ListBySection(ctx context.Context, sectionID string) ([]*EventRegistration, error) {
	return r.list(ctx,
		"SELECT "+registrationColumns+" FROM event_registrations WHERE section_id=? ORDER BY registered_at, id",
		sectionID)
}

func (r *RegistrationRepo) list(ctx context.Context, q string, arg any) ([]*EventRegistration, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*EventRegistration
	for rows.Next() {
		g, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// MarkAttended stamps attendance on a registration.
func (r *RegistrationRepo) MarkAttended(ctx context.Context, id string) (*EventRegistration, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE event_registrations SET attended=TRUE, attended_at=CURRENT_TIMESTAMP WHERE id=?",
		id)
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

// Delete cancels a registration. The owner (or an elevated role) may
// cancel; anyone else gets ErrForbidden. Idempotent on absent ids.
func (r *RegistrationRepo) Delete(ctx context.Context, id, requesterID string, elevated bool) error {
	g, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !elevated && g.UserID != requesterID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM event_registrations WHERE id=?", id)
	return err
}
