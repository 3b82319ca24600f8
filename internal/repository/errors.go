// Package repository contains the data access layer for reservations.
// The sentinel errors defined here let handlers distinguish failure
// scenarios without inspecting SQL errors directly.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// reservation that belongs to someone else.  Handlers should translate
// this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a status transition cannot be performed
// because the reservation is no longer PENDING.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
