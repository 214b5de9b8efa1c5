package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names stored on users and embedded in access tokens. ANONYMOUS is
// never persisted; it is the implied role of an unauthenticated request.
const (
	RoleAnonymous     = "ANONYMOUS"
	RoleAuthenticated = "AUTHENTICATED"
	RoleManager       = "MANAGER"
	RoleAdmin         = "ADMIN"
	RolePro           = "PRO"
)

// User mirrors the 'users' table.
type User struct {
	ID                  string         `json:"id"`
	Username            string         `json:"username"`
	Email               string         `json:"email"`
	HashedPassword      string         `json:"-"`
	FullName            sql.NullString `json:"full_name"`
	Bio                 sql.NullString `json:"bio"`
	ProfilePictureURL   sql.NullString `json:"profile_picture_url"`
	Role                string         `json:"role"`
	EmailVerified       bool           `json:"email_verified"`
	VerificationToken   sql.NullString `json:"-"`
	IsLocked            bool           `json:"is_locked"`
	FailedLoginAttempts int            `json:"-"`
	LastLoginAt         sql.NullTime   `json:"last_login_at"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// UserPatch enumerates the mutable profile fields. Nil pointers leave the
// corresponding column untouched, so a partial update only writes what the
// client actually sent.
type UserPatch struct {
	Username          *string
	Email             *string
	HashedPassword    *string
	FullName          *string
	Bio               *string
	ProfilePictureURL *string
	Role              *string
}

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, hashed_password, full_name, bio,
	profile_picture_url, role, email_verified, verification_token, is_locked,
	failed_login_attempts, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword,
		&u.FullName, &u.Bio, &u.ProfilePictureURL, &u.Role, &u.EmailVerified,
		&u.VerificationToken, &u.IsLocked, &u.FailedLoginAttempts,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and reads the row back so callers receive the
// database-populated timestamps. Username and email are normalized before
// the insert; a unique-key violation on either surfaces as ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New().String()
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleAuthenticated
	}
	const q = `INSERT INTO users
		(id, username, email, hashed_password, full_name, bio, role,
		 email_verified, verification_token, is_locked, failed_login_attempts)
		VALUES (?,?,?,?,?,?,?,?,?,FALSE,0)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Username, u.Email,
		u.HashedPassword, u.FullName, u.Bio, u.Role, u.EmailVerified,
		u.VerificationToken)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicate
		}
		return err
	}
	fresh, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *fresh
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1",
		strings.TrimSpace(username)))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email))))
}

// List returns a window of users ordered by creation time.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at, id LIMIT ? OFFSET ?",
		limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// Update applies a patch to the given user and returns the refreshed row.
// Only non-nil patch fields are written. ErrDuplicate is returned when a
// new username or email collides with another account.
func (r *UserRepo) Update(ctx context.Context, id string, p UserPatch) (*User, error) {
	set := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if p.Username != nil {
		set = append(set, "username=?")
		args = append(args, strings.TrimSpace(*p.Username))
	}
	if p.Email != nil {
		set = append(set, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.HashedPassword != nil {
		set = append(set, "hashed_password=?")
		args = append(args, *p.HashedPassword)
	}
	if p.FullName != nil {
		set = append(set, "full_name=?")
		args = append(args, *p.FullName)
	}
	if p.Bio != nil {
		set = append(set, "bio=?")
		args = append(args, *p.Bio)
	}
	if p.ProfilePictureURL != nil {
		set = append(set, "profile_picture_url=?")
		args = append(args, *p.ProfilePictureURL)
	}
	if p.Role != nil {
		set = append(set, "role=?")
		args = append(args, strings.ToUpper(*p.Role))
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	q := "UPDATE users SET " + strings.Join(set, ", ") +
		", updated_at=CURRENT_TIMESTAMP WHERE id=?"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicateErr(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also 0 when the patch matches the current values,
		// so double-check existence before reporting not found.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user and everything hanging off it: owned events with
// their dependents, registrations, reviews and notifications. Deleting an
// absent id returns ErrNotFound rather than failing, so the operation is
// idempotent. The whole cascade runs in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
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
		"SELECT COUNT(*) FROM users WHERE id=?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		err = ErrNotFound
		return err
	}

	// Dependents of the user's own events first, then the events, then the
	// user's direct children, then the user row itself.
	steps := []string{
		`DELETE er FROM event_registrations er
		 JOIN event_sections es ON es.id = er.section_id
		 JOIN events e ON e.id = es.event_id WHERE e.creator_id = ?`,
		`DELETE es FROM event_sections es
		 JOIN events e ON e.id = es.event_id WHERE e.creator_id = ?`,
		`DELETE ea FROM event_approvals ea
		 JOIN events e ON e.id = ea.event_id WHERE e.creator_id = ?`,
		`DELETE ev FROM event_reviews ev
		 JOIN events e ON e.id = ev.event_id WHERE e.creator_id = ?`,
		`DELETE et FROM event_tags et
		 JOIN events e ON e.id = et.event_id WHERE e.creator_id = ?`,
		`DELETE n FROM notifications n
		 JOIN events e ON e.id = n.event_id WHERE e.creator_id = ?`,
		`DELETE FROM events WHERE creator_id = ?`,
		`DELETE FROM event_registrations WHERE user_id = ?`,
		`DELETE FROM event_reviews WHERE reviewer_id = ?`,
		`DELETE FROM notifications WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

// RecordLoginFailure bumps the failed-attempt counter and locks the account
// once maxAttempts is reached. It returns the updated user.
func (r *UserRepo) RecordLoginFailure(ctx context.Context, id string, maxAttempts int) (*User, error) {
	// MySQL evaluates SET clauses left to right, so the lock check below
	// already sees the incremented counter.
	const q = `UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    is_locked = (failed_login_attempts >= ?),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, maxAttempts, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// RecordLoginSuccess resets the failure counter and stamps last_login_at.
func (r *UserRepo) RecordLoginSuccess(ctx context.Context, id string) error {
	const q = `UPDATE users
		SET failed_login_attempts = 0, last_login_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// VerifyEmail marks the account verified when token matches the stored
// verification token. It reports ErrNotFound for an unknown user and
// ErrConflict for a token mismatch.
func (r *UserRepo) VerifyEmail(ctx context.Context, id, token string) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !u.VerificationToken.Valid || u.VerificationToken.String != token {
		return ErrConflict
	}
	const q = `UPDATE users
		SET email_verified = TRUE, verification_token = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q, id)
	return err
}

// SetRole changes a user's role.
func (r *UserRepo) SetRole(ctx context.Context, id, role string) (*User, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET role=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		strings.ToUpper(role), id)
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

// Unlock clears the lock flag and failure counter, typically after an admin
// intervention.
func (r *UserRepo) Unlock(ctx context.Context, id string) error {
	const q = `UPDATE users
		SET is_locked = FALSE, failed_login_attempts = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ProfileComplete reports whether the profile fields required for the pro
// role are all present.
func ProfileComplete(u *User) bool {
	return u.FullName.Valid && strings.TrimSpace(u.FullName.String) != "" &&
		u.Bio.Valid && strings.TrimSpace(u.Bio.String) != "" &&
		u.ProfilePictureURL.Valid && u.ProfilePictureURL.String != ""
}
