package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/labstack/echo/v4"
)

type EventHandler struct {
	svc service.EventService
}

func NewEventHandler(svc service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// RegisterRoutes mounts the catalog on g, including the /create and /list
// paths older clients still call.
func (h *EventHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateEvent)
	g.POST("/create", h.CreateEvent)
	g.GET("", h.ListEvents)
	g.GET("/list", h.ListEvents)
	g.GET("/:id", h.GetEvent)
	g.DELETE("/:id", h.DeleteEvent)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	event, err := h.svc.CreateEvent(c.Request().Context(), req.Name, req.Fields)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEvent):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEventExists):
			return echo.NewHTTPError(http.StatusBadRequest, "This event name already exists!")
		case errors.Is(err, service.ErrMirrorFailed):
			return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Message: "Failed to create the audit table. Check the mirror credentials.",
				Error:   err.Error(),
			})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.CreateEventResponse{
		Message: "Success! Event saved and audit table created.",
		Event:   dto.ToEventResponse(event),
	})
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	event, err := h.svc.GetEvent(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Event not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.EventResponse, len(events))
	for i, e := range events {
		resp[i] = dto.ToEventResponse(&e)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) DeleteEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	if err := h.svc.DeleteEvent(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Event not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Event deleted successfully from database"})
}
