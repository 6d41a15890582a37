package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/credential"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/metrics"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/rabbitmq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AttendeeService interface {
	Register(ctx context.Context, eventID uint, formData map[string]string) (*models.Attendee, error)
	GetByCredential(ctx context.Context, credentialID string) (*models.Attendee, error)
	MirrorBacklog(ctx context.Context, limit int) ([]models.Attendee, []models.StatusEntry, error)
}

type attendeeService struct {
	attendees repository.AttendeeRepository
	events    repository.EventRepository
	mirror    Mirror
	publisher Publisher
}

func NewAttendeeService(attendees repository.AttendeeRepository, events repository.EventRepository, mirror Mirror, publisher Publisher) AttendeeService {
	return &attendeeService{attendees: attendees, events: events, mirror: mirror, publisher: publisher}
}

// Register persists a new attendee and mirrors its identity row. When the
// mirror write fails the attendee is still returned, together with an error
// wrapping ErrMirrorFailed; the row stays pending for the reconciler.
func (s *attendeeService) Register(ctx context.Context, eventID uint, formData map[string]string) (*models.Attendee, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("find event %d: %w", eventID, err)
	}

	attendee := &models.Attendee{
		EventID:       event.ID,
		FormData:      declaredOnly(event.Fields, formData),
		CredentialID:  credential.NewID(),
		CurrentStatus: models.StatusRegistered,
		MirrorTable:   event.Name,
	}
	if err := s.attendees.Create(ctx, attendee); err != nil {
		return nil, fmt.Errorf("create attendee: %w", err)
	}
	metrics.Registrations.Inc()

	log.Info().Str("component", "registration").
		Uint("attendee_id", attendee.ID).Str("event", event.Name).Str("qr_code_id", attendee.CredentialID).
		Msg("attendee registered")

	publish(s.publisher, rabbitmq.KeyAttendeeRegistered, dto.AttendeeRegisteredMessage{
		AttendeeID: attendee.ID,
		EventID:    event.ID,
		EventName:  event.Name,
		QRCodeID:   attendee.CredentialID,
	})

	if err := s.mirror.Sync(ctx, attendee.ID); err != nil {
		log.Error().Err(err).Str("component", "registration").Str("qr_code_id", attendee.CredentialID).
			Msg("identity row not mirrored")
		return attendee, fmt.Errorf("%w: %w", ErrMirrorFailed, err)
	}
	return attendee, nil
}

func (s *attendeeService) GetByCredential(ctx context.Context, credentialID string) (*models.Attendee, error) {
	attendee, err := s.attendees.FindByCredential(ctx, credentialID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttendeeNotFound
	}
	return attendee, err
}

func (s *attendeeService) MirrorBacklog(ctx context.Context, limit int) ([]models.Attendee, []models.StatusEntry, error) {
	return s.attendees.ListMirrorBacklog(ctx, limit)
}

// declaredOnly drops form values for fields the event does not declare.
func declaredOnly(fields []string, formData map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := formData[f]; ok {
			out[f] = v
		}
	}
	return out
}
