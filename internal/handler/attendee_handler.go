package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/credential"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/labstack/echo/v4"
)

type AttendeeHandler struct {
	svc service.AttendeeService
}

func NewAttendeeHandler(svc service.AttendeeService) *AttendeeHandler {
	return &AttendeeHandler{svc: svc}
}

func (h *AttendeeHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.GET("/:qrCodeId", h.GetAttendee)
}

func (h *AttendeeHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	attendee, err := h.svc.Register(c.Request().Context(), req.EventID, req.FormData)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Event not found")
		}
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Message: "Registration failed",
			Error:   err.Error(),
		})
	}

	qr, err := credential.Encode(attendee.CredentialID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Message: "Registration failed",
			Error:   err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, dto.RegisterResponse{
		Message:  "Registration Successful!",
		QRCode:   qr,
		Attendee: dto.ToAttendeeResponse(attendee),
	})
}

func (h *AttendeeHandler) GetAttendee(c echo.Context) error {
	qrCodeID := c.Param("qrCodeId")
	if strings.TrimSpace(qrCodeID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "qrCodeId is required")
	}

	attendee, err := h.svc.GetByCredential(c.Request().Context(), qrCodeID)
	if err != nil {
		if errors.Is(err, service.ErrAttendeeNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Attendee not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToAttendeeResponse(attendee))
}
