package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrEventExists      = errors.New("this event name already exists")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBlankAction      = errors.New("action is required")
	ErrMirrorFailed     = errors.New("audit table write failed")
)

// Publisher sends domain events to the message broker.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Mirror propagates an attendee's pending registry state to the audit table.
type Mirror interface {
	Sync(ctx context.Context, attendeeID uint) error
}

// TableCreator creates the audit table of a new event.
type TableCreator interface {
	CreateTable(ctx context.Context, table string, fields []string) error
}

// publish is best effort; a nil publisher disables it.
func publish(p Publisher, routingKey string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(routingKey, payload); err != nil {
		log.Warn().Err(err).Str("component", "publisher").Str("routing_key", routingKey).Msg("publish failed")
	}
}
