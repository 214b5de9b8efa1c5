package handler

import (
	"context"

	"github.com/evently/evently-backend/internal/repository"
)

// UserStore is the slice of the user repository the handlers call.
// *repository.UserRepo satisfies it; tests substitute an in-memory double.
type UserStore interface {
	Create(ctx context.Context, u *repository.User) error
	GetByID(ctx context.Context, id string) (*repository.User, error)
	GetByUsername(ctx context.Context, username string) (*repository.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	List(ctx context.Context, skip, limit int) ([]*repository.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, p repository.UserPatch) (*repository.User, error)
	Delete(ctx context.Context, id string) error
	SetRole(ctx context.Context, id, role string) (*repository.User, error)
	Unlock(ctx context.Context, id string) error
	VerifyEmail(ctx context.Context, id, token string) error
	RecordLoginFailure(ctx context.Context, id string, maxAttempts int) (*repository.User, error)
	RecordLoginSuccess(ctx context.Context, id string) error
}

// MailSender covers the transactional mails auth and profile flows send.
// *email.Mailer satisfies it.
type MailSender interface {
	SendVerification(to, username, userID, token string) error
	SendProRoleNotice(to, username string) error
	SendAccountLocked(to, username string) error
}
