package formoptions

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scherkao31/dentseq-data-sub000/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/form-options", h.Get)
	api.POST("/form-options", h.Save, auth.RequireRole("admin"))
}

func (h *Handler) Get(c echo.Context) error {
	cfg, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load form options").SetInternal(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) Save(c echo.Context) error {
	var cfg Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	uid := auth.UserIDFromContext(c.Request().Context())
	merged, err := h.svc.Save(c.Request().Context(), &cfg, uid)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save form options").SetInternal(err)
	}
	return c.JSON(http.StatusOK, merged)
}
