package stats

import (
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
	api.GET("/stats", h.Overview)
	api.GET("/stats/export", h.Export, auth.RequireRole("admin"))
}

func (h *Handler) Overview(c echo.Context) error {
	o, err := h.svc.Overview(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute statistics").SetInternal(err)
	}
	return c.JSON(http.StatusOK, o)
}

// Export streams NDJSON. Once the first line is out a failure can only be
// logged; the caller sees a truncated file.
func (h *Handler) Export(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	w.Header().Set(echo.HeaderContentDisposition, `attachment; filename="dentseq-approved.ndjson"`)

	n, err := h.svc.Export(c.Request().Context(), w)
	if err != nil {
		if !w.Committed {
			w.Header().Del(echo.HeaderContentDisposition)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to export dataset").SetInternal(err)
		}
		h.svc.log.Error().Err(err).Int("records", n).Msg("export aborted")
		return nil
	}
	if !w.Committed {
		w.WriteHeader(http.StatusOK)
	}
	return nil
}
