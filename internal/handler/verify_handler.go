package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/labstack/echo/v4"
)

type VerifyHandler struct {
	svc service.VerifyService
}

func NewVerifyHandler(svc service.VerifyService) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

func (h *VerifyHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/scan", h.Scan)
}

// Scan answers 403 with isScammer for credentials that are unknown or belong
// to another event, so clients can tell a rejection from a failure.
func (h *VerifyHandler) Scan(c echo.Context) error {
	var req dto.ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.QRCodeID) == "" || strings.TrimSpace(req.EventName) == "" || strings.TrimSpace(req.Action) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "qrCodeId, eventName and action must not be blank")
	}

	res, err := h.svc.Scan(c.Request().Context(), req.QRCodeID, req.EventName, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			return c.JSON(http.StatusForbidden, dto.ScammerResponse{Message: "Scammer detected!", IsScammer: true})
		case errors.Is(err, service.ErrBlankAction):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Message: "Verification failed",
				Error:   err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, dto.ScanResponse{
		Message:       "Status updated in audit table",
		UserName:      res.UserName,
		CurrentAction: res.Action,
	})
}
