package handler

import (
	"net/http"
	"strconv"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/labstack/echo/v4"
)

const (
	defaultBacklogLimit = 100
	maxBacklogLimit     = 1000
)

type MirrorHandler struct {
	svc service.AttendeeService
}

func NewMirrorHandler(svc service.AttendeeService) *MirrorHandler {
	return &MirrorHandler{svc: svc}
}

func (h *MirrorHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/pending", h.Pending)
}

// Pending lists registry rows and status entries not yet in the audit table.
func (h *MirrorHandler) Pending(c echo.Context) error {
	limit := defaultBacklogLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxBacklogLimit)
	}

	attendees, entries, err := h.svc.MirrorBacklog(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToMirrorBacklogResponse(attendees, entries))
}
