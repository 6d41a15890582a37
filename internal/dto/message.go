package dto

import "time"

// Payloads published on the checkin exchange.

type EventMessage struct {
	ID     uint     `json:"id"`
	Name   string   `json:"name"`
	Fields []string `json:"fields,omitempty"`
}

type AttendeeRegisteredMessage struct {
	AttendeeID uint   `json:"attendeeId"`
	EventID    uint   `json:"eventId"`
	EventName  string `json:"eventName"`
	QRCodeID   string `json:"qrCodeId"`
}

type StatusRecordedMessage struct {
	AttendeeID uint      `json:"attendeeId"`
	EventName  string    `json:"eventName"`
	QRCodeID   string    `json:"qrCodeId"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}
