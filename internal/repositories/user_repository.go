package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/memoria-social/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	// GetUserByIdentity resolves the stored profile of a verified caller.
	GetUserByIdentity(ctx context.Context, identity models.Identity) (*models.User, error)
	// UpsertProfile creates or updates the caller's profile.
	UpsertProfile(ctx context.Context, identity models.Identity, req models.UpdateProfileRequest) (*models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) lookup(ctx context.Context, identity models.Identity) *gorm.DB {
	q := r.db.WithContext(ctx)
	if identity.Provider == models.ProviderFirebase {
		return q.Where("firebase_uid = ?", identity.UserID)
	}
	id, err := strconv.ParseUint(identity.UserID, 10, 64)
	if err != nil {
		// Never matches: gorm ids start at 1.
		id = 0
	}
	return q.Where("id = ?", id)
}

// GetUserByIdentity retrieves the caller's profile from PostgreSQL
func (r *PostgresUserRepository) GetUserByIdentity(ctx context.Context, identity models.Identity) (*models.User, error) {
	var user models.User
	if err := r.lookup(ctx, identity).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", identity.UserID, err)
	}
	return &user, nil
}

// UpsertProfile creates the caller's profile or updates name and picture
func (r *PostgresUserRepository) UpsertProfile(ctx context.Context, identity models.Identity, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := r.GetUserByIdentity(ctx, identity)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user = &models.User{}
		if identity.Provider == models.ProviderFirebase {
			user.FirebaseUID = identity.UserID
		} else {
			id, perr := strconv.ParseUint(identity.UserID, 10, 64)
			if perr != nil {
				return nil, fmt.Errorf("%w: invalid user id %q", models.ErrValidation, identity.UserID)
			}
			user.ID = uint(id)
		}
	case err != nil:
		return nil, err
	}

	if user.Email == nil && identity.Email != "" {
		email := identity.Email
		user.Email = &email
	}
	user.Name = req.Name
	user.ProfilePicture = req.ProfilePicture
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}
