package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/evently/evently-backend/internal/repository"
)

func paramCtx(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestPageParams(t *testing.T) {
	cases := []struct {
		name      string
		target    string
		wantSkip  int
		wantLimit int
	}{
		{"defaults", "/users", 0, 10},
		{"explicit", "/users?skip=20&limit=50", 20, 50},
		{"limit clamped to 100", "/users?limit=5000", 0, 100},
		{"negative skip reset", "/users?skip=-5", 0, 10},
		{"zero limit reset", "/users?limit=0", 0, 10},
		{"garbage ignored", "/users?skip=abc&limit=xyz", 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			skip, limit := pageParams(paramCtx(tc.target))
			assert.Equal(t, tc.wantSkip, skip)
			assert.Equal(t, tc.wantLimit, limit)
		})
	}
}

func TestElevated(t *testing.T) {
	assert.True(t, elevated(repository.RoleAdmin))
	assert.True(t, elevated(repository.RoleManager))
	assert.False(t, elevated(repository.RolePro))
	assert.False(t, elevated(repository.RoleAuthenticated))
	assert.False(t, elevated(""))
}

func TestNullUnwrappers(t *testing.T) {
	assert.Nil(t, strOrNil(sql.NullString{}))
	v := strOrNil(sql.NullString{String: "x", Valid: true})
	if assert.NotNil(t, v) {
		assert.Equal(t, "x", *v)
	}

	assert.Nil(t, intOrNil(sql.NullInt64{}))
	assert.Nil(t, timeOrNil(sql.NullTime{}))

	ns := nullStr("")
	assert.False(t, ns.Valid, "empty string maps to NULL")
	ns = nullStr("hello")
	assert.True(t, ns.Valid)
}
