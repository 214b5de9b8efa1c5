// Package repository contains data access logic separated from HTTP
// handlers. Each entity gets its own repo struct over *sql.DB with a uniform
// contract: Create performs the insert plus a read-back select, GetByID
// returns ErrNotFound for absent rows, List takes a skip/limit window,
// Update applies an explicit patch struct field-by-field, and Delete is
// idempotent. Sentinel errors defined here let handlers map failures to
// HTTP codes without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when the requested row does not exist. Handlers
// translate this into 404 (or a safe no-op for repeated deletes).
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// index, e.g. registering a username that is already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// existing state, such as registering for a section that is already full.
var ErrConflict = errors.New("conflict")

// isDuplicateErr reports whether err is a MySQL unique-key violation
// (error 1062).
func isDuplicateErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
