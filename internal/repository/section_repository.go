package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventSection mirrors the 'event_sections' table. Sections are the
// bookable parts of an event; registrations attach to a section, not to the
// event itself.
type EventSection struct {
	ID                   string         `json:"id"`
	EventID              string         `json:"event_id"`
	Title                string         `json:"title"`
	StartAt              time.Time      `json:"start_at"`
	EndAt                time.Time      `json:"end_at"`
	Location             sql.NullString `json:"location"`
	Capacity             sql.NullInt64  `json:"capacity"`
	RegistrationDeadline sql.NullTime   `json:"registration_deadline"`
	AdditionalInfo       sql.NullString `json:"additional_info"`
	QRCodePath           sql.NullString `json:"qr_code_path"`
}

// SectionPatch enumerates the mutable section fields.
type SectionPatch struct {
	Title                *string
	StartAt              *time.Time
	EndAt                *time.Time
	Location             *string
	Capacity             *int64
	RegistrationDeadline *time.Time
	AdditionalInfo       *string
}

type SectionRepo struct{ db *sql.DB }

func NewSectionRepo(db *sql.DB) *SectionRepo { return &SectionRepo{db: db} }

const sectionColumns = `id, event_id, title, start_at, end_at, location,
	capacity, registration_deadline, additional_info, qr_code_path`

func scanSection(row interface{ Scan(...any) error }) (*EventSection, error) {
	var s EventSection
	err := row.Scan(&s.ID, &s.EventID, &s.Title, &s.StartAt, &s.EndAt,
		&s.Location, &s.Capacity, &s.RegistrationDeadline, &s.AdditionalInfo,
		&s.QRCodePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a section under an event and reads it back.
func (r *SectionRepo) Create(ctx context.Context, s *EventSection) error {
	s.ID = uuid.New().String()
	const q = `INSERT INTO event_sections
		(id, event_id, title, start_at, end_at, location, capacity,
		 registration_deadline, additional_info)
		VALUES (?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.EventID, s.Title, s.StartAt,
		s.EndAt, s.Location, s.Capacity, s.RegistrationDeadline, s.AdditionalInfo)
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// GetByID fetches a section by id.
func (r *SectionRepo) GetByID(ctx context.Context, id string) (*EventSection, error) {
	return scanSection(r.db.QueryRowContext(ctx,
		"SELECT "+sectionColumns+" FROM event_sections WHERE id=? LIMIT 1", id))
}

// ListByEvent returns all sections of an event ordered by start time.
func (r *SectionRepo) ListByEvent(ctx context.Context, eventID string) ([]*EventSection, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sectionColumns+" FROM event_sections WHERE event_id=? ORDER BY start_at, id",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*EventSection
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update applies a patch and returns the refreshed section.
func (r *SectionRepo) Update(ctx context.Context, id string, p SectionPatch) (*EventSection, error) {
	set := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if p.Title != nil {
		set = append(set, "title=?")
		args = append(args, *p.Title)
	}
	if p.StartAt != nil {
		set = append(set, "start_at=?")
		args = append(args, *p.StartAt)
	}
	if p.EndAt != nil {
		set = append(set, "end_at=?")
		args = append(args, *p.EndAt)
	}
	if p.Location != nil {
		set = append(set, "location=?")
		args = append(args, *p.Location)
	}
	if p.Capacity != nil {
		set = append(set, "capacity=?")
		args = append(args, *p.Capacity)
	}
	if p.RegistrationDeadline != nil {
		set = append(set, "registration_deadline=?")
		args = append(args, *p.RegistrationDeadline)
	}
	if p.AdditionalInfo != nil {
		set = append(set, "additional_info=?")
		args = append(args, *p.AdditionalInfo)
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	q := "UPDATE event_sections SET " + strings.Join(set, ", ") + " WHERE id=?"
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a section and its registrations in one transaction.
// Deleting an absent id reports ErrNotFound.
func (r *SectionRepo) Delete(ctx context.Context, id string) error {
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

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM event_registrations WHERE section_id=?", id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx,
		"DELETE FROM event_sections WHERE id=?", id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}
