// Package handler binds HTTP verbs and paths to the repositories. Handlers
// validate input, enforce ownership, and shape responses; everything that
// touches the database lives in internal/repository.
package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/repository"
)

// reqCtx bounds every database call made on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// currentUserID returns the authenticated user's id injected by JWTAuth.
// Routes serving these handlers always sit behind the middleware, so a
// missing value can only mean a wiring mistake and returns empty.
func currentUserID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

func currentRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

// elevated reports whether a role may act on resources it does not own.
func elevated(role string) bool {
	return role == repository.RoleAdmin || role == repository.RoleManager
}

// pageParams reads skip/limit query parameters with the defaults the list
// endpoints document. limit is clamped to keep a single response bounded.
func pageParams(c echo.Context) (skip, limit int) {
	skip, limit = 0, 10
	if v, err := strconv.Atoi(c.QueryParam("skip")); err == nil && v >= 0 {
		skip = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	return skip, limit
}

// Null-type unwrappers for response shaping; JSON gets null rather than the
// sql wrapper struct.

func strOrNil(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func timeOrNil(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

func intOrNil(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
