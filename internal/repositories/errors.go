package repositories

import (
	"errors"
	"fmt"

	"github.com/memoria-social/backend/internal/models"
)

var (
	// ErrPostNotFound is returned when no post has the requested id.
	ErrPostNotFound = fmt.Errorf("post %w", models.ErrNotFound)
	// ErrUserNotFound is returned when no stored profile matches.
	ErrUserNotFound = fmt.Errorf("user %w", models.ErrNotFound)
	// ErrVersionConflict is returned by SavePost when the stored document
	// changed since it was loaded.
	ErrVersionConflict = errors.New("post was modified concurrently")
)

// IsVersionConflict reports whether err is a lost optimistic-concurrency race.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
