package sequence

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	api.POST("/sequences", h.Create)
	api.GET("/sequences", h.List)
	api.GET("/sequences/:id", h.Get)
	api.PUT("/sequences/:id", h.Update)
	api.PATCH("/sequences/:id/status", h.UpdateStatus)
	api.DELETE("/sequences/:id", h.Delete)

	api.POST("/sequence-editor/new", h.NewDraft)
	api.POST("/sequence-editor/apply", h.Apply)
}

// errorResponse maps service errors to HTTP errors. Store failures keep their
// detail as the internal error and show the caller a generic message.
func errorResponse(err error, generic string) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "sequence not found")
	case errors.Is(err, ErrPlanNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "treatment plan not found")
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

func (h *Handler) Create(c echo.Context) error {
	var seq Sequence
	if err := c.Bind(&seq); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		seq.CreatedBy = &uid
	}
	seq.Status = StatusDraft
	if err := h.svc.Create(c.Request().Context(), &seq); err != nil {
		return errorResponse(err, "failed to save sequence")
	}
	return c.JSON(http.StatusCreated, seq)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	seq, err := h.svc.Load(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err, "failed to load sequence")
	}
	return c.JSON(http.StatusOK, seq)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"plan_id", "status", "created_by"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, p.Limit, p.Offset)
	if err != nil {
		return errorResponse(err, "failed to list sequences")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var seq Sequence
	if err := c.Bind(&seq); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	seq.ID = id
	if err := h.svc.Update(c.Request().Context(), &seq); err != nil {
		return errorResponse(err, "failed to save sequence")
	}
	return c.JSON(http.StatusOK, seq)
}

type statusRequest struct {
	Status      string  `json:"status"`
	ReviewNotes *string `json:"review_notes"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	reviewer := auth.UserIDFromContext(c.Request().Context())
	seq, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status, reviewer, req.ReviewNotes)
	if err != nil {
		return errorResponse(err, "failed to update status")
	}
	return c.JSON(http.StatusOK, seq)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return errorResponse(err, "failed to delete sequence")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Editor --

func (h *Handler) NewDraft(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.NewDraft(c.Request().Context()))
}

type applyRequest struct {
	Appointments []*AppointmentGroup `json:"appointments"`
	Operation    Operation           `json:"operation"`
}

func (h *Handler) Apply(c echo.Context) error {
	var req applyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.ApplyOperation(c.Request().Context(), req.Appointments, req.Operation)
	if err != nil {
		return errorResponse(err, "failed to apply operation")
	}
	return c.JSON(http.StatusOK, d)
}
