package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/repository"
	"github.com/evently/evently-backend/internal/utils"
)

// fakeUserStore keeps users in a map so handlers can be exercised without a
// database.
type fakeUserStore struct {
	users map[string]*repository.User
	seq   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*repository.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, u *repository.User) error {
	for _, ex := range s.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	s.seq++
	u.ID = fmt.Sprintf("user-%d", s.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*repository.User, error) {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*repository.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) List(_ context.Context, skip, limit int) ([]*repository.User, error) {
	out := make([]*repository.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeUserStore) Count(_ context.Context) (int, error) { return len(s.users), nil }

func (s *fakeUserStore) Update(_ context.Context, id string, p repository.UserPatch) (*repository.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.HashedPassword != nil {
		u.HashedPassword = *p.HashedPassword
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) Delete(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) SetRole(_ context.Context, id, role string) (*repository.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) Unlock(_ context.Context, id string) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsLocked = false
	u.FailedLoginAttempts = 0
	return nil
}

func (s *fakeUserStore) VerifyEmail(_ context.Context, id, token string) error {
	u, ok := s.users[id]
	if !ok || !u.VerificationToken.Valid || u.VerificationToken.String != token {
		return repository.ErrNotFound
	}
	if u.EmailVerified {
		return repository.ErrConflict
	}
	u.EmailVerified = true
	return nil
}

func (s *fakeUserStore) RecordLoginFailure(_ context.Context, id string, maxAttempts int) (*repository.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.IsLocked = true
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) RecordLoginSuccess(_ context.Context, id string) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LastLoginAt.Valid = true
	u.LastLoginAt.Time = time.Now()
	return nil
}

// fakeMailer records outbound mail instead of dialing SMTP.
type fakeMailer struct {
	verifications []string
	lockNotices   []string
	proNotices    []string
}

func (m *fakeMailer) SendVerification(to, username, userID, token string) error {
	m.verifications = append(m.verifications, to)
	return nil
}

func (m *fakeMailer) SendAccountLocked(to, username string) error {
	m.lockNotices = append(m.lockNotices, to)
	return nil
}

func (m *fakeMailer) SendProRoleNotice(to, username string) error {
	m.proNotices = append(m.proNotices, to)
	return nil
}

func authTestConfig() config.Config {
	return config.Config{
		BaseURL:          "http://localhost:8080",
		JWTSecret:        "handler-test-secret",
		AccessTTLMin:     15,
		BcryptCost:       4,
		MaxLoginAttempts: 3,
	}
}

func authHandlerForTest(t *testing.T) (*AuthHandler, *fakeUserStore, *fakeMailer) {
	t.Helper()
	store := newFakeUserStore()
	mailer := &fakeMailer{}
	return NewAuthHandler(authTestConfig(), store, mailer), store, mailer
}

func seedUser(t *testing.T, store *fakeUserStore, username, email, password string) *repository.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	u := &repository.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		Role:           repository.RoleAuthenticated,
		EmailVerified:  true,
	}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestRegisterCreatesUserAndMailsVerification(t *testing.T) {
	h, store, mailer := authHandlerForTest(t)
	e := echo.New()

	rec, c := doJSON(e, http.MethodPost, "/register",
		`{"username":"alice","email":"Alice@Example.com","password":"secret-pass"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	u, err := store.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email, "email is lowercased")
	assert.Equal(t, repository.RoleAuthenticated, u.Role)
	assert.False(t, u.EmailVerified)
	require.Len(t, mailer.verifications, 1)
	assert.Equal(t, "alice@example.com", mailer.verifications[0])
}

func TestRegisterDuplicate(t *testing.T) {
	h, store, _ := authHandlerForTest(t)
	e := echo.New()
	seedUser(t, store, "alice", "alice@example.com", "secret-pass")

	rec, c := doJSON(e, http.MethodPost, "/register",
		`{"username":"alice","email":"other@example.com","password":"secret-pass"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")

	rec, c = doJSON(e, http.MethodPost, "/register",
		`{"username":"bob","email":"alice@example.com","password":"secret-pass"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already exists")
}

func TestLoginIssuesBearerToken(t *testing.T) {
	h, store, _ := authHandlerForTest(t)
	e := echo.New()
	seedUser(t, store, "alice", "alice@example.com", "secret-pass")

	rec, c := doJSON(e, http.MethodPost, "/token",
		`{"username":"alice","password":"secret-pass"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token"`)
	assert.Contains(t, rec.Body.String(), `"token_type":"bearer"`)

	// The email works in the username field too.
	rec, c = doJSON(e, http.MethodPost, "/token",
		`{"username":"alice@example.com","password":"secret-pass"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	h, store, _ := authHandlerForTest(t)
	e := echo.New()
	u := seedUser(t, store, "alice", "alice@example.com", "secret-pass")

	rec, c := doJSON(e, http.MethodPost, "/token",
		`{"username":"alice","password":"wrong-pass"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password.")

	after, err := store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.FailedLoginAttempts)
	assert.False(t, after.IsLocked)
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	h, store, mailer := authHandlerForTest(t)
	e := echo.New()
	u := seedUser(t, store, "alice", "alice@example.com", "secret-pass")

	for i := 0; i < h.Cfg.MaxLoginAttempts; i++ {
		rec, c := doJSON(e, http.MethodPost, "/token",
			`{"username":"alice","password":"wrong-pass"}`)
		require.NoError(t, h.Login(c))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	after, err := store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, after.IsLocked)
	require.Len(t, mailer.lockNotices, 1, "lock notice mailed once")

	// Even the correct password is refused while the lock holds.
	rec, c := doJSON(e, http.MethodPost, "/token",
		`{"username":"alice","password":"secret-pass"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account locked due to too many failed login attempts.")
}

func TestVerifyEmailLifecycle(t *testing.T) {
	h, store, _ := authHandlerForTest(t)
	e := echo.New()
	u := seedUser(t, store, "alice", "alice@example.com", "secret-pass")
	su := store.users[u.ID]
	su.EmailVerified = false
	su.VerificationToken.Valid = true
	su.VerificationToken.String = "tok-123"

	rec, c := doJSON(e, http.MethodGet, "/verify-email/"+u.ID+"/tok-123", "")
	c.SetParamNames("user_id", "token")
	c.SetParamValues(u.ID, "tok-123")
	require.NoError(t, h.VerifyEmail(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, c = doJSON(e, http.MethodGet, "/verify-email/"+u.ID+"/tok-123", "")
	c.SetParamNames("user_id", "token")
	c.SetParamValues(u.ID, "tok-123")
	require.NoError(t, h.VerifyEmail(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second verification is rejected")
}
