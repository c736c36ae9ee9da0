package assistant

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/plan"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/llm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/chat", h.Chat)
}

type deltaEvent struct {
	Delta string `json:"delta"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// Chat streams the reply as `data: {"delta": ...}` events followed by
// `event: done`. Errors before the first delta are plain HTTP errors; later
// ones are sent as `event: error`.
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	w := c.Response()
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
		w.Header().Set(echo.HeaderCacheControl, "no-cache")
		w.Header().Set(echo.HeaderConnection, "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
	}

	_, err := h.svc.Chat(c.Request().Context(), &req, func(delta string) error {
		start()
		if err := writeEvent(w, "", deltaEvent{Delta: delta}); err != nil {
			return err
		}
		w.Flush()
		return nil
	})

	if err != nil && !started {
		return errorResponse(err)
	}
	start()
	if err != nil {
		_ = writeEvent(w, "error", errorEvent{Error: streamErrorMessage(err)})
	} else {
		_ = writeEvent(w, "done", struct{}{})
	}
	w.Flush()
	return nil
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, plan.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "treatment plan not found")
	case errors.Is(err, llm.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "configuration error: "+err.Error()).SetInternal(err)
	case errors.Is(err, llm.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "assistant timed out").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadGateway, "assistant unavailable").SetInternal(err)
}

func streamErrorMessage(err error) string {
	if errors.Is(err, llm.ErrTimeout) {
		return "maximum chat duration reached"
	}
	return "assistant stream interrupted"
}
