package incident

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/platform/auth"
	"github.com/safecare/safecare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleCaregiver, auth.RoleFamily))
	readGroup.GET("/incidents", h.List)
	readGroup.GET("/incidents/active", h.Active)
	readGroup.GET("/incidents/:id", h.Get)

	caregiverGroup := api.Group("", auth.RequireRole(auth.RoleCaregiver))
	caregiverGroup.POST("/incidents", h.Create)
	caregiverGroup.PUT("/incidents/:id/claim", h.Claim)
	caregiverGroup.PUT("/incidents/:id/resolve", h.Resolve)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/incidents/overdue", h.Overdue)
	adminGroup.GET("/incidents/stats", h.Stats)
	adminGroup.POST("/incidents/simulate-fall", h.SimulateFall)
}

// incidentView augments an incident with display fields derived at read time.
type incidentView struct {
	*Incident
	TimeElapsed string `json:"time_elapsed"`
	Overdue     bool   `json:"is_overdue"`
}

func (h *Handler) view(i *Incident) incidentView {
	now := time.Now()
	return incidentView{
		Incident:    i,
		TimeElapsed: i.TimeElapsed(now),
		Overdue:     i.IsOverdue(h.svc.Timeout(), now),
	}
}

func (h *Handler) views(items []*Incident) []incidentView {
	out := make([]incidentView, 0, len(items))
	for _, i := range items {
		out = append(out, h.view(i))
	}
	return out
}

type createRequest struct {
	ResidentID      uuid.UUID       `json:"resident_id"`
	Type            Type            `json:"type"`
	Severity        Severity        `json:"severity"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	DetectionMethod DetectionMethod `json:"detection_method"`
	Priority        int             `json:"priority"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	i := &Incident{
		ResidentID:      req.ResidentID,
		Type:            req.Type,
		Severity:        req.Severity,
		Description:     req.Description,
		Location:        req.Location,
		DetectionMethod: req.DetectionMethod,
		Priority:        req.Priority,
	}
	if err := h.svc.Create(c.Request().Context(), i); err != nil {
		switch {
		case errors.Is(err, resident.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "resident not found")
		case errors.Is(err, ErrUpstreamUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, ErrUpstreamUnavailable.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, h.view(i))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	i, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "incident not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.view(i))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f ListFilter
	f.Status = Status(c.QueryParam("status"))
	f.Type = Type(c.QueryParam("type"))
	f.Severity = Severity(c.QueryParam("severity"))
	if rid := c.QueryParam("resident_id"); rid != "" {
		id, err := uuid.Parse(rid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid resident_id")
		}
		f.ResidentID = id
	}
	if v := c.QueryParam("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		f.Start = t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		f.End = t
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(h.views(items), total, pg.Limit, pg.Offset))
}

func (h *Handler) Active(c echo.Context) error {
	items, err := h.svc.Active(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(items),
		"data":  h.views(items),
	})
}

func (h *Handler) Claim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	actorID := auth.ActorIDFromContext(c.Request().Context())
	i, err := h.svc.Claim(c.Request().Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "incident not found")
		case errors.Is(err, ErrNotClaimable):
			return echo.NewHTTPError(http.StatusConflict, ErrNotClaimable.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.view(i))
}

type resolveRequest struct {
	Resolution  Resolution `json:"resolution"`
	Notes       *string    `json:"notes"`
	AdminAction *string    `json:"admin_action"`
}

func (h *Handler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	actorID := auth.ActorIDFromContext(ctx)
	isAdmin := auth.RoleFromContext(ctx) == auth.RoleAdmin

	i, err := h.svc.Resolve(ctx, id, actorID, isAdmin, req.Resolution, req.Notes, req.AdminAction)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "incident not found")
		case errors.Is(err, ErrNotResolvable):
			return echo.NewHTTPError(http.StatusConflict, ErrNotResolvable.Error())
		case errors.Is(err, ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, ErrForbidden.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.view(i))
}

func (h *Handler) Overdue(c echo.Context) error {
	timeout := h.svc.Timeout()
	if v := c.QueryParam("timeout"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid timeout")
		}
		timeout = time.Duration(minutes) * time.Minute
	}

	items, err := h.svc.Overdue(c.Request().Context(), timeout)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(items),
		"data":    h.views(items),
		"timeout": timeout.String(),
	})
}

func (h *Handler) Stats(c echo.Context) error {
	days := 30
	if v := c.QueryParam("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
		days = d
	}

	stats, err := h.svc.Stats(c.Request().Context(), days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

type simulateFallRequest struct {
	ResidentID uuid.UUID `json:"resident_id"`
}

func (h *Handler) SimulateFall(c echo.Context) error {
	var req simulateFallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	i, err := h.svc.SimulateFall(c.Request().Context(), req.ResidentID)
	if err != nil {
		switch {
		case errors.Is(err, resident.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "resident not found")
		case errors.Is(err, ErrUpstreamUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, ErrUpstreamUnavailable.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, h.view(i))
}
