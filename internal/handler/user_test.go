package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/evently-backend/internal/repository"
)

func userHandlerForTest(t *testing.T) (*UserHandler, *fakeUserStore, *fakeMailer) {
	t.Helper()
	store := newFakeUserStore()
	mailer := &fakeMailer{}
	return NewUserHandler(authTestConfig(), store, mailer), store, mailer
}

func TestAdminCreateUser(t *testing.T) {
	h, store, _ := userHandlerForTest(t)
	e := echo.New()

	rec, c := doJSON(e, http.MethodPost, "/users",
		`{"username":"carol","email":"carol@example.com","password":"secret-pass","role":"manager"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	u, err := store.GetByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, repository.RoleManager, u.Role, "role is normalized and stored")
	assert.True(t, u.EmailVerified, "admin-created accounts skip verification")
}

func TestAdminCreateUserRejections(t *testing.T) {
	h, store, _ := userHandlerForTest(t)
	e := echo.New()
	seedUser(t, store, "carol", "carol@example.com", "secret-pass")

	rec, c := doJSON(e, http.MethodPost, "/users",
		`{"username":"carol","email":"new@example.com","password":"secret-pass"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")

	rec, c = doJSON(e, http.MethodPost, "/users",
		`{"username":"dave","email":"dave@example.com","password":"secret-pass","role":"WIZARD"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown role")
}
