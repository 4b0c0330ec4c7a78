package store

import "errors"

var (
	errInvalidSalt = errors.New("store: stored vault_salt is not 32 bytes of hex")

	// ErrNotFound is returned by ByID/ByVault when no row matches.
	ErrNotFound = errors.New("store: swap not found")

	// ErrStateConflict means a status-gated UPDATE affected zero rows:
	// another worker already made progress on this swap (spec.md §7
	// StateConflict). Callers treat it as a no-op, not a failure.
	ErrStateConflict = errors.New("store: status-gated update affected no rows")
)
