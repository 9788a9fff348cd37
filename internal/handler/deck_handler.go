package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"ygodeck/internal/auth"
	"ygodeck/internal/deck"
	"ygodeck/internal/errors"
	"ygodeck/internal/logging"
	"ygodeck/internal/service"
)

// DeckHandler serves the owner-scoped deck endpoints.
type DeckHandler struct {
	deckService service.DeckService
	logger      *logging.Logger
}

// NewDeckHandler creates a new deck handler.
func NewDeckHandler(deckService service.DeckService, logger *logging.Logger) *DeckHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DeckHandler{deckService: deckService, logger: logger}
}

// DeckResponse wraps a single deck.
type DeckResponse struct {
	Deck *service.DeckDetail `json:"deck"`
}

// DeckListResponse wraps the caller's decks.
type DeckListResponse struct {
	Decks []service.DeckSummary `json:"decks"`
}

// Create godoc
// @Summary Save a new deck
// @Tags decks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body deck.Submission true "Deck"
// @Success 201 {object} DeckResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /decks [post]
func (h *DeckHandler) Create(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	var sub deck.Submission
	if err := c.Bind(&sub); err != nil {
		return badRequest("invalid request body")
	}

	detail, err := h.deckService.Create(c.Request().Context(), claims.UserID, sub)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, DeckResponse{Deck: detail})
}

// List godoc
// @Summary List the caller's decks with section totals
// @Tags decks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DeckListResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /decks [get]
func (h *DeckHandler) List(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	decks, err := h.deckService.List(c.Request().Context(), claims.UserID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, DeckListResponse{Decks: decks})
}

// Get godoc
// @Summary Get a deck
// @Tags decks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deck ID"
// @Success 200 {object} DeckResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /decks/{id} [get]
func (h *DeckHandler) Get(c echo.Context) error {
	claims, id, err := h.target(c)
	if err != nil {
		return err
	}

	detail, err := h.deckService.Get(c.Request().Context(), claims.UserID, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, DeckResponse{Deck: detail})
}

// Update godoc
// @Summary Replace a deck's name and cards
// @Tags decks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deck ID"
// @Param request body deck.Submission true "Deck"
// @Success 200 {object} DeckResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /decks/{id} [put]
func (h *DeckHandler) Update(c echo.Context) error {
	claims, id, err := h.target(c)
	if err != nil {
		return err
	}
	var sub deck.Submission
	if err := c.Bind(&sub); err != nil {
		return badRequest("invalid request body")
	}

	detail, err := h.deckService.Update(c.Request().Context(), claims.UserID, id, sub)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, DeckResponse{Deck: detail})
}

// Delete godoc
// @Summary Delete a deck
// @Tags decks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deck ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /decks/{id} [delete]
func (h *DeckHandler) Delete(c echo.Context) error {
	claims, id, err := h.target(c)
	if err != nil {
		return err
	}

	if err := h.deckService.Delete(c.Request().Context(), claims.UserID, id); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "deck deleted",
	})
}

// ExportYDK godoc
// @Summary Download a deck as a .ydk file
// @Tags decks
// @Produce plain
// @Security BearerAuth
// @Param id path int true "Deck ID"
// @Success 200 {string} string
// @Failure 404 {object} errors.ErrorResponse
// @Router /decks/{id}/ydk [get]
func (h *DeckHandler) ExportYDK(c echo.Context) error {
	claims, id, err := h.target(c)
	if err != nil {
		return err
	}

	name, content, err := h.deckService.ExportYDK(c.Request().Context(), claims.UserID, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName(name)+".ydk"))
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(content))
}

// ExportQR godoc
// @Summary QR code of the deck's ydke:// URI
// @Tags decks
// @Produce png
// @Security BearerAuth
// @Param id path int true "Deck ID"
// @Param size query int false "Image size in pixels (default 256, max 1024)"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /decks/{id}/qr [get]
func (h *DeckHandler) ExportQR(c echo.Context) error {
	claims, id, err := h.target(c)
	if err != nil {
		return err
	}
	size := 0
	if raw := c.QueryParam("size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil || size <= 0 {
			return badRequest("size must be a positive integer")
		}
	}

	png, err := h.deckService.ExportQR(c.Request().Context(), claims.UserID, id, size)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *DeckHandler) target(c echo.Context) (*auth.Claims, uint, error) {
	claims, err := currentUser(c)
	if err != nil {
		return nil, 0, err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid deck id",
			Code:  "INVALID_ID",
		})
	}
	return claims, uint(id), nil
}

// fileName keeps a deck name safe for a Content-Disposition header.
func fileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if safe == "" {
		return "deck"
	}
	return safe
}
