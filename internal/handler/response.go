package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ygodeck/internal/auth"
	"ygodeck/internal/errors"
	"ygodeck/internal/logging"
)

// fail maps a service error onto the standard error body. Unexpected errors
// are logged and reduced to a generic 500.
func fail(c echo.Context, logger *logging.Logger, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.IsInternal() {
		logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  "INVALID_REQUEST",
	})
}

// bindAndValidate decodes the body and runs the struct validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// currentUser returns the claims placed on the context by the JWT middleware.
func currentUser(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(auth.ContextKey).(*auth.Claims)
	if !ok || claims == nil || claims.UserID == 0 {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "authentication required",
			Code:  "UNAUTHORIZED",
		})
	}
	return claims, nil
}
