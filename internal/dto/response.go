package dto

import (
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type EventResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Fields    []string  `json:"fields"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateEventResponse struct {
	Message string        `json:"message"`
	Event   EventResponse `json:"event"`
}

type StatusEntryResponse struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type AttendeeResponse struct {
	ID            uint                  `json:"id"`
	EventID       uint                  `json:"eventId"`
	FormData      map[string]string     `json:"formData"`
	QRCodeID      string                `json:"qrCodeId"`
	StatusHistory []StatusEntryResponse `json:"statusHistory"`
	CurrentStatus string                `json:"currentStatus"`
	CreatedAt     time.Time             `json:"createdAt"`
}

type RegisterResponse struct {
	Message  string           `json:"message"`
	QRCode   string           `json:"qrCode"`
	Attendee AttendeeResponse `json:"attendee"`
}

type ScanResponse struct {
	Message       string `json:"message"`
	UserName      string `json:"userName"`
	CurrentAction string `json:"currentAction"`
}

type ScammerResponse struct {
	Message   string `json:"message"`
	IsScammer bool   `json:"isScammer"`
}

type PendingRowResponse struct {
	AttendeeID uint       `json:"attendeeId"`
	QRCodeID   string     `json:"qrCodeId"`
	Table      string     `json:"table"`
	Attempts   int        `json:"attempts"`
	LastError  *string    `json:"lastError,omitempty"`
	NextTry    *time.Time `json:"nextTry,omitempty"`
}

type PendingEntryResponse struct {
	AttendeeID uint       `json:"attendeeId"`
	Action     string     `json:"action"`
	Timestamp  time.Time  `json:"timestamp"`
	Attempts   int        `json:"attempts"`
	LastError  *string    `json:"lastError,omitempty"`
	NextTry    *time.Time `json:"nextTry,omitempty"`
}

type MirrorBacklogResponse struct {
	Attendees []PendingRowResponse   `json:"attendees"`
	Entries   []PendingEntryResponse `json:"entries"`
}

func ToEventResponse(e *models.Event) EventResponse {
	fields := e.Fields
	if fields == nil {
		fields = []string{}
	}
	return EventResponse{
		ID:        e.ID,
		Name:      e.Name,
		Fields:    fields,
		CreatedAt: e.CreatedAt,
	}
}

func ToAttendeeResponse(a *models.Attendee) AttendeeResponse {
	history := make([]StatusEntryResponse, len(a.StatusHistory))
	for i, s := range a.StatusHistory {
		history[i] = StatusEntryResponse{Action: s.Action, Timestamp: s.Timestamp}
	}
	formData := a.FormData
	if formData == nil {
		formData = map[string]string{}
	}
	return AttendeeResponse{
		ID:            a.ID,
		EventID:       a.EventID,
		FormData:      formData,
		QRCodeID:      a.CredentialID,
		StatusHistory: history,
		CurrentStatus: a.CurrentStatus,
		CreatedAt:     a.CreatedAt,
	}
}

func ToMirrorBacklogResponse(attendees []models.Attendee, entries []models.StatusEntry) MirrorBacklogResponse {
	resp := MirrorBacklogResponse{
		Attendees: make([]PendingRowResponse, len(attendees)),
		Entries:   make([]PendingEntryResponse, len(entries)),
	}
	for i, a := range attendees {
		resp.Attendees[i] = PendingRowResponse{
			AttendeeID: a.ID,
			QRCodeID:   a.CredentialID,
			Table:      a.MirrorTable,
			Attempts:   a.MirrorAttempts,
			LastError:  a.MirrorError,
			NextTry:    a.NextMirrorAt,
		}
	}
	for i, e := range entries {
		resp.Entries[i] = PendingEntryResponse{
			AttendeeID: e.AttendeeID,
			Action:     e.Action,
			Timestamp:  e.Timestamp,
			Attempts:   e.MirrorAttempts,
			LastError:  e.MirrorError,
			NextTry:    e.NextMirrorAt,
		}
	}
	return resp
}
