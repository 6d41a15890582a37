package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/audit"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/mirror"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository/repotest"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *echo.Echo {
	t.Helper()
	events := repotest.NewEvents()
	attendees := repotest.NewAttendees()
	table := audit.NewLog(audit.NewMemoryGrid(), nil)
	syncer := mirror.NewSyncer(attendees, table, nil, time.Second)

	return newServer(&app{
		attendees: attendees,
		table:     table,
		syncer:    syncer,
		events:    service.NewEventService(events, table, nil),
		register:  service.NewAttendeeService(attendees, events, syncer, nil),
		verify:    service.NewVerifyService(attendees, events, syncer, nil),
	})
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_CheckInFlow(t *testing.T) {
	e := testServer(t)

	rec := do(t, e, http.MethodPost, "/api/events/create", `{"name":"Gala","fields":["Name","Phone"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dto.CreateEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, e, http.MethodPost, "/api/events", `{"name":"Gala","fields":["Name"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/attendees/register",
		`{"eventId":`+jsonNumber(created.Event.ID)+`,"formData":{"Name":"Kai","Phone":"555"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered dto.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	qr := registered.Attendee.QRCodeID

	rec = do(t, e, http.MethodPost, "/api/verify/scan", `{"qrCodeId":"`+qr+`","eventName":"Gala","action":"Enter To Event"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Status updated in audit table","userName":"Kai","currentAction":"Enter To Event"}`, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/verify/scan", `{"qrCodeId":"`+qr+`","eventName":"Concert","action":"Enter To Event"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Scammer detected!","isScammer":true}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/attendees/"+qr, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var attendee dto.AttendeeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attendee))
	assert.Equal(t, "Enter To Event", attendee.CurrentStatus)
	assert.Len(t, attendee.StatusHistory, 1)

	rec = do(t, e, http.MethodGet, "/api/mirror/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"attendees":[],"entries":[]}`, rec.Body.String())
}

func TestServer_HealthAndMetrics(t *testing.T) {
	e := testServer(t)

	rec := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"checkin"}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkin_registrations_total")
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
