package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/middleware"
	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/repositories"
)

// httpError maps domain and repository errors onto HTTP status codes.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, models.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case repositories.IsVersionConflict(err):
		return echo.NewHTTPError(http.StatusConflict, "Post was modified concurrently, please retry")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}

func currentIdentity(c echo.Context) (models.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return models.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return identity, nil
}

func commentIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("comment_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}
	return id, nil
}

// authorResolver builds the author snapshot for a caller. The stored profile
// wins over token claims when a user repository is configured.
type authorResolver struct {
	users repositories.UserRepository
}

func (r authorResolver) resolve(c echo.Context) (models.Author, error) {
	identity, err := currentIdentity(c)
	if err != nil {
		return models.Author{}, err
	}
	if r.users == nil {
		return identity.Author(nil), nil
	}
	profile, err := r.users.GetUserByIdentity(c.Request().Context(), identity)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return identity.Author(nil), nil
	}
	if err != nil {
		return models.Author{}, httpError(err)
	}
	return identity.Author(profile), nil
}
