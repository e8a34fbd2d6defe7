package models

import "errors"

// Sentinel errors shared by the engine packages.
// Use errors.Is to check: errors.Is(err, models.ErrConflict)
var (
	// ErrNotFound is returned when the catalog has no card with the requested id.
	ErrNotFound = errors.New("srs: card not found")
	// ErrConflict is returned when the stored progress changed between read and write.
	// Callers must re-read and retry.
	ErrConflict = errors.New("srs: concurrent progress update")
	// ErrInvalidRating is returned for ratings outside again/hard/good/easy.
	ErrInvalidRating = errors.New("srs: invalid rating")
	// ErrValidation marks a computed progress state that violates an invariant.
	ErrValidation = errors.New("srs: progress validation failed")
)
