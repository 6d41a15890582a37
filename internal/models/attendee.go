package models

import (
	"strings"
	"time"
)

// StatusRegistered is the implicit status of a freshly registered attendee.
const StatusRegistered = "Registered"

// Attendee is the system of record for a registrant. The mirror columns track
// whether the identity row has reached the external audit table.
type Attendee struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	EventID       uint              `gorm:"not null;index" json:"eventId"`
	FormData      map[string]string `gorm:"type:text;serializer:json" json:"formData"`
	CredentialID  string            `gorm:"not null;uniqueIndex" json:"qrCodeId"`
	StatusHistory []StatusEntry     `gorm:"foreignKey:AttendeeID" json:"statusHistory"`
	CurrentStatus string            `gorm:"type:text;not null;default:'Registered'" json:"currentStatus"`
	CreatedAt     time.Time         `json:"createdAt"`

	MirrorTable    string     `gorm:"not null" json:"-"`
	MirroredAt     *time.Time `json:"-"`
	MirrorAttempts int        `gorm:"not null;default:0" json:"-"`
	MirrorError    *string    `json:"-"`
	NextMirrorAt   *time.Time `json:"-"`
}

// StatusEntry is one append-only step of an attendee's journey. It doubles as
// the outbox record for the external audit table.
type StatusEntry struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	AttendeeID uint      `gorm:"not null;index" json:"-"`
	Action     string    `gorm:"not null" json:"action"`
	Timestamp  time.Time `gorm:"not null" json:"timestamp"`

	MirroredAt     *time.Time `gorm:"index" json:"-"`
	MirrorColumn   int        `gorm:"not null;default:0" json:"-"`
	MirrorAttempts int        `gorm:"not null;default:0" json:"-"`
	MirrorError    *string    `json:"-"`
	NextMirrorAt   *time.Time `json:"-"`
}

// DisplayName picks the attendee's name from form data: an exact "Name" field,
// else the first declared field whose name mentions "name", else "User".
func (a *Attendee) DisplayName(fields []string) string {
	if v := a.FormData["Name"]; v != "" {
		return v
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), "name") && a.FormData[f] != "" {
			return a.FormData[f]
		}
	}
	return "User"
}

func (a *Attendee) Mirrored() bool {
	return a.MirroredAt != nil
}
