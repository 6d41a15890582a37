package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/metrics"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/rabbitmq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ScanResult summarizes an authorized scan.
type ScanResult struct {
	UserName string
	Action   string
	Attendee *models.Attendee
}

type VerifyService interface {
	Scan(ctx context.Context, credentialID, eventName, action string) (*ScanResult, error)
}

type verifyService struct {
	attendees repository.AttendeeRepository
	events    repository.EventRepository
	mirror    Mirror
	publisher Publisher
	now       func() time.Time
}

func NewVerifyService(attendees repository.AttendeeRepository, events repository.EventRepository, mirror Mirror, publisher Publisher) VerifyService {
	return &verifyService{attendees: attendees, events: events, mirror: mirror, publisher: publisher, now: time.Now}
}

// Scan authorizes a credential for the claimed event and records the action.
// A credential is only valid at the gate of the event it was issued for; any
// other outcome is ErrUnauthorized. The registry append is kept even when the
// audit table write fails, in which case the result comes back together with
// an error wrapping ErrMirrorFailed.
func (s *verifyService) Scan(ctx context.Context, credentialID, eventName, action string) (*ScanResult, error) {
	if strings.TrimSpace(action) == "" {
		return nil, ErrBlankAction
	}

	attendee, event, err := s.authorize(ctx, credentialID, eventName)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			metrics.Scans.WithLabelValues(metrics.ResultRejected).Inc()
			log.Warn().Str("component", "verify").Str("qr_code_id", credentialID).Str("event", eventName).
				Msg("scammer detected")
		}
		return nil, err
	}

	entry := &models.StatusEntry{Action: action, Timestamp: s.now()}
	if err := s.attendees.AppendStatus(ctx, attendee, entry); err != nil {
		return nil, fmt.Errorf("record status: %w", err)
	}
	metrics.Scans.WithLabelValues(metrics.ResultAuthorized).Inc()

	publish(s.publisher, rabbitmq.KeyAttendeeStatusChanged, dto.StatusRecordedMessage{
		AttendeeID: attendee.ID,
		EventName:  event.Name,
		QRCodeID:   attendee.CredentialID,
		Action:     entry.Action,
		Timestamp:  entry.Timestamp,
	})

	result := &ScanResult{
		UserName: attendee.DisplayName(event.Fields),
		Action:   action,
		Attendee: attendee,
	}

	if err := s.mirror.Sync(ctx, attendee.ID); err != nil {
		log.Error().Err(err).Str("component", "verify").Str("qr_code_id", credentialID).Str("action", action).
			Msg("status recorded in registry but not mirrored")
		return result, fmt.Errorf("%w: %w", ErrMirrorFailed, err)
	}
	return result, nil
}

func (s *verifyService) authorize(ctx context.Context, credentialID, eventName string) (*models.Attendee, *models.Event, error) {
	attendee, err := s.attendees.FindByCredential(ctx, credentialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("find attendee: %w", err)
	}

	event, err := s.events.FindByID(ctx, attendee.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("find event %d: %w", attendee.EventID, err)
	}

	if event.Name != eventName {
		return nil, nil, ErrUnauthorized
	}
	return attendee, event, nil
}
