package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"ygodeck/internal/catalog"
	"ygodeck/internal/logging"
	"ygodeck/internal/service"
)

// CardHandler serves catalog search.
type CardHandler struct {
	cardService service.CardService
	logger      *logging.Logger
}

// NewCardHandler creates a new card handler.
func NewCardHandler(cardService service.CardService, logger *logging.Logger) *CardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CardHandler{cardService: cardService, logger: logger}
}

// Search godoc
// @Summary Search the card catalog
// @Description Names shorter than 3 characters are ignored. atk and def take asc, desc or a minimum value.
// @Tags cards
// @Produce json
// @Param fname query string false "Name contains"
// @Param type query string false "Card type"
// @Param attribute query string false "Attribute"
// @Param race query string false "Race or spell/trap subtype"
// @Param level query int false "Level or rank"
// @Param atk query string false "asc, desc or minimum attack"
// @Param def query string false "asc, desc or minimum defense"
// @Param page query int false "Zero-based page of 100 cards"
// @Param offset query int false "Explicit offset, used with num"
// @Param num query int false "Explicit page size, at most 100"
// @Param id query string false "Comma separated card ids"
// @Success 200 {array} catalog.Card
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /cards [get]
func (h *CardHandler) Search(c echo.Context) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return fail(c, h.logger, err)
	}

	cards, err := h.cardService.Search(c.Request().Context(), filter)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, cards)
}

func filterFromQuery(c echo.Context) (catalog.Filter, error) {
	f := catalog.Filter{
		Name:      c.QueryParam("fname"),
		Type:      c.QueryParam("type"),
		Attribute: c.QueryParam("attribute"),
		Race:      c.QueryParam("race"),
		Level:     c.QueryParam("level"),
		Atk:       c.QueryParam("atk"),
		Def:       c.QueryParam("def"),
	}

	var err error
	if f.Page, err = intParam(c, "page"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(c, "offset"); err != nil {
		return f, err
	}
	if f.Num, err = intParam(c, "num"); err != nil {
		return f, err
	}

	if raw := strings.TrimSpace(c.QueryParam("id")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, convErr := strconv.Atoi(strings.TrimSpace(part))
			if convErr != nil {
				return f, fmt.Errorf("%w: id must be a comma separated list of integers", catalog.ErrInvalidFilter)
			}
			f.IDs = append(f.IDs, id)
		}
	}
	return f, nil
}

func intParam(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", catalog.ErrInvalidFilter, name, raw)
	}
	return n, nil
}
