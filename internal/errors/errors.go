package errors

import (
	"errors"
	"net/http"

	"ygodeck/internal/catalog"
	"ygodeck/internal/deck"
)

var (
	// ErrDeckNotFound is returned when a deck is absent or owned by someone else.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrDeckNameTaken is returned when the owner already has a deck with that name.
	ErrDeckNameTaken = errors.New("a deck with this name already exists")
	// ErrUserNotFound is returned when an authenticated user no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the username or email is registered.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned when login fails for any reason.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// FieldError names one offending field of a rejected payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    []FieldError
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

// IsInternal reports whether the error was mapped to a generic 500.
func (e *HTTPError) IsInternal() bool {
	return e.StatusCode >= http.StatusInternalServerError && e.StatusCode != http.StatusBadGateway
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var validation *deck.ValidationError
	switch {
	case errors.As(err, &validation):
		httpErr := NewHTTPError(http.StatusBadRequest, validation.Error(), "VALIDATION_ERROR")
		for _, v := range validation.Violations {
			httpErr.Details = append(httpErr.Details, FieldError{Field: v.Field, Message: v.Message})
		}
		return httpErr
	case errors.Is(err, ErrDeckNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "DECK_NOT_FOUND")
	case errors.Is(err, ErrDeckNameTaken):
		return NewHTTPError(http.StatusConflict, ErrDeckNameTaken.Error(), "DECK_NAME_TAKEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrUserAlreadyExists):
		return NewHTTPError(http.StatusConflict, ErrUserAlreadyExists.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidRefreshToken.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, catalog.ErrInvalidFilter):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_FILTER")
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		return NewHTTPError(http.StatusBadGateway, catalog.ErrUpstreamUnavailable.Error(), "UPSTREAM_UNAVAILABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
