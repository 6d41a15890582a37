package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/audit"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/dto"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/rabbitmq"
	"gorm.io/gorm"
)

type EventService interface {
	CreateEvent(ctx context.Context, name string, fields []string) (*models.Event, error)
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	DeleteEvent(ctx context.Context, id uint) error
}

type eventService struct {
	repo      repository.EventRepository
	tables    TableCreator
	publisher Publisher
}

func NewEventService(repo repository.EventRepository, tables TableCreator, publisher Publisher) EventService {
	return &eventService{repo: repo, tables: tables, publisher: publisher}
}

// CreateEvent validates the template, creates its audit table and then saves
// the catalog record. A failed table creation leaves no record behind.
func (s *eventService) CreateEvent(ctx context.Context, name string, fields []string) (*models.Event, error) {
	name = strings.TrimSpace(name)
	fields, err := normalizeFields(name, fields)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, ErrEventExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find event %q: %w", name, err)
	}

	if err := s.tables.CreateTable(ctx, name, fields); err != nil {
		if errors.Is(err, audit.ErrTableExists) {
			return nil, ErrEventExists
		}
		return nil, fmt.Errorf("%w: %w", ErrMirrorFailed, err)
	}

	event := &models.Event{Name: name, Fields: fields}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	publish(s.publisher, rabbitmq.KeyEventCreated, dto.EventMessage{ID: event.ID, Name: event.Name, Fields: event.Fields})
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.repo.FindAll(ctx)
}

// DeleteEvent removes the catalog record only. The audit table and the
// attendees stay; their credentials stop verifying.
func (s *eventService) DeleteEvent(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event %d: %w", id, err)
	}

	publish(s.publisher, rabbitmq.KeyEventDeleted, dto.EventMessage{ID: id})
	return nil
}

func normalizeFields(name string, fields []string) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidEvent)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: at least one field is required", ErrInvalidEvent)
	}

	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		switch {
		case f == "":
			return nil, fmt.Errorf("%w: field names must not be blank", ErrInvalidEvent)
		case audit.IsReservedField(f):
			return nil, fmt.Errorf("%w: field %q is reserved", ErrInvalidEvent, f)
		case seen[f]:
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidEvent, f)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}
