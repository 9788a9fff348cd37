package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ygodeck/internal/logging"
	"ygodeck/internal/service"
)

// UserHandler serves account lookups.
type UserHandler struct {
	svc    service.UserService
	logger *logging.Logger
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, logger *logging.Logger) *UserHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &UserHandler{svc: svc, logger: logger}
}

// Me godoc
// @Summary Current account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	profile, err := h.svc.Profile(c.Request().Context(), claims.UserID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}
