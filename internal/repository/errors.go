// Package repository defines the storage ports used by the booking ledger
// and the sentinel errors shared by every implementation.  Higher layers
// compare against these values with errors.Is so that they never depend on
// driver specific errors such as sql.ErrNoRows.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// for example a second payment for the same reservation.
var ErrDuplicate = errors.New("duplicate")

// ErrStaleVersion is returned by conditional updates whose expected
// version no longer matches the stored row.  Callers may reload and retry.
var ErrStaleVersion = errors.New("stale version")
