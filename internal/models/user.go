package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User is a stored user profile (PostgreSQL)
type User struct {
	gorm.Model
	Name           string  `json:"name"`
	Email          *string `json:"email,omitempty" gorm:"uniqueIndex"` // NULL when the identity carries no email
	ProfilePicture string  `json:"profilePicture"`
	FirebaseUID    string  `json:"firebaseUid,omitempty" gorm:"index"` // Link to Firebase User UID
}

// UpdateProfileRequest defines the request body for updating the caller's profile
type UpdateProfileRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=50"`
	ProfilePicture string `json:"profilePicture,omitempty" validate:"omitempty,url"`
}

// Identity providers
const (
	ProviderJWT      = "jwt"
	ProviderFirebase = "firebase"
)

// Identity is the verified caller attached to a request by the auth middleware.
// UserID is the decimal user id for local JWTs and the Firebase UID otherwise.
type Identity struct {
	UserID         string
	Provider       string
	Email          string
	Name           string
	ProfilePicture string
}

// Author returns the snapshot implied by the identity claims. A stored
// profile, when there is one, takes precedence over the claims.
func (i Identity) Author(profile *User) Author {
	a := Author{ID: i.UserID, Name: i.Name, ProfilePicture: i.ProfilePicture}
	if profile != nil {
		a.Name = profile.Name
		a.ProfilePicture = profile.ProfilePicture
	}
	return a
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims into a request identity.
func (c *JwtCustomClaims) Identity() Identity {
	return Identity{
		UserID:         strconv.FormatUint(uint64(c.UserID), 10),
		Provider:       ProviderJWT,
		Email:          c.Email,
		Name:           c.Name,
		ProfilePicture: c.Picture,
	}
}
