package plan

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/parsing"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/auth"
	"github.com/scherkao31/dentseq-data-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/plans", h.Create)
	api.GET("/plans", h.List)
	api.GET("/plans/:id", h.Get)
	api.PUT("/plans/:id", h.Update)
	api.DELETE("/plans/:id", h.Delete)
	api.POST("/plans/:id/parse", h.Reparse)
	api.POST("/plans/:id/confirm", h.Confirm)
	api.PATCH("/plans/:id/status", h.SetStatus)
}

func errorResponse(err error, generic string) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "treatment plan not found")
	case errors.Is(err, ErrImmutable), errors.Is(err, ErrInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return parsing.ErrorResponse(pe.Err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, generic).SetInternal(err)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createRequest struct {
	Plan
	AutoParse bool `json:"auto_parse"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := req.Plan
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		p.CreatedBy = &uid
	}
	if err := h.svc.Create(c.Request().Context(), &p, req.AutoParse); err != nil {
		return errorResponse(err, "failed to save treatment plan")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err, "failed to load treatment plan")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"status", "created_by", "category", "tooth"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return errorResponse(err, "failed to list treatment plans")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Plan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return errorResponse(err, "failed to save treatment plan")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return errorResponse(err, "failed to delete treatment plan")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Reparse(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Reparse(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err, "failed to parse treatment plan")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Confirm(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.SetStatus(c.Request().Context(), id, StatusConfirmed)
	if err != nil {
		return errorResponse(err, "failed to confirm treatment plan")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return errorResponse(err, "failed to update treatment plan status")
	}
	return c.JSON(http.StatusOK, p)
}
