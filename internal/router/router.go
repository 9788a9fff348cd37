package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"ygodeck/docs"
	"ygodeck/internal/auth"
	"ygodeck/internal/config"
	apperrors "ygodeck/internal/errors"
	"ygodeck/internal/handler"
	"ygodeck/internal/logging"
	"ygodeck/internal/metrics"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth *handler.AuthHandler
	Card *handler.CardHandler
	Deck *handler.DeckHandler
	User *handler.UserHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, jwtService *auth.JWTService, h Handlers, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}

	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())

	e.Validator = &CustomValidator{validator: validator.New()}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/cards", h.Card.Search)

	// Secured routes (require JWT authentication)
	secured := api.Group("", JWTMiddleware(jwtService))

	secured.GET("/users/me", h.User.Me)

	secured.POST("/decks", h.Deck.Create)
	secured.GET("/decks", h.Deck.List)
	secured.GET("/decks/:id", h.Deck.Get)
	secured.PUT("/decks/:id", h.Deck.Update)
	secured.DELETE("/decks/:id", h.Deck.Delete)
	secured.GET("/decks/:id/ydk", h.Deck.ExportYDK)
	secured.GET("/decks/:id/qr", h.Deck.ExportQR)
}

// JWTMiddleware validates bearer tokens with the JWT service and stores the
// claims under auth.ContextKey. A missing or malformed header is 401, a
// token that fails validation is 403.
func JWTMiddleware(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  auth.ContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			return jwtService.ParseToken(strings.TrimSpace(token))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
					Error: "invalid or expired token",
					Code:  "INVALID_TOKEN",
				})
			}
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "missing or malformed authorization header",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("request", append(args, "error", v.Error)...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("request", args...)
			default:
				logger.Info("request", args...)
			}
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
