package parsing

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scherkao31/dentseq-data-sub000/internal/platform/llm"
)

type Handler struct {
	parser *Parser
}

func NewHandler(parser *Parser) *Handler {
	return &Handler{parser: parser}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/parse-plan", h.ParsePlan)
}

type parseRequest struct {
	RawInput string `json:"rawInput"`
}

func (h *Handler) ParsePlan(c echo.Context) error {
	var req parseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.parser.Parse(c.Request().Context(), req.RawInput)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, res)
}

// ErrorResponse maps parser errors to HTTP errors. Provider failures carry
// the underlying message; there is no partial result.
func ErrorResponse(err error) error {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, llm.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "configuration error: "+err.Error()).SetInternal(err)
	case errors.Is(err, llm.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "plan parsing timed out").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadGateway, "plan parsing failed: "+err.Error()).SetInternal(err)
}
