package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/minnesingerthule/VRIL-Storage/internal/auth"
	"github.com/minnesingerthule/VRIL-Storage/internal/drive"
	"github.com/minnesingerthule/VRIL-Storage/internal/logging"
	"github.com/minnesingerthule/VRIL-Storage/internal/models"
)

// Handler maps HTTP requests onto the auth and drive services.
type Handler struct {
	Auth  *auth.Service
	Drive *drive.Service

	log logging.Logger
}

func NewHandler(authSvc *auth.Service, driveSvc *drive.Service, log logging.Logger) *Handler {
	return &Handler{
		Auth:  authSvc,
		Drive: driveSvc,
		log:   log,
	}
}

// fail translates service errors into HTTP responses. Ownership failures
// come back as 404 by construction; only download produces 403.
func (h *Handler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, drive.ErrConflict),
		errors.Is(err, drive.ErrInvalidParent),
		errors.Is(err, drive.ErrInvalidName):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, drive.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, drive.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, drive.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.Error("request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) currentUser(c echo.Context) (*models.User, error) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return user, nil
}
