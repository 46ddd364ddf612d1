package middleware

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/models"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware creates an Echo middleware to verify Firebase ID tokens
func FirebaseAuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			identity := models.Identity{UserID: token.UID, Provider: models.ProviderFirebase}
			if name, ok := token.Claims["name"].(string); ok {
				identity.Name = name
			}
			if email, ok := token.Claims["email"].(string); ok {
				identity.Email = email
			}
			if picture, ok := token.Claims["picture"].(string); ok {
				identity.ProfilePicture = picture
			}
			c.Set(IdentityKey, identity)

			return next(c)
		}
	}
}
