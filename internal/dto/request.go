package dto

type CreateEventRequest struct {
	Name   string   `json:"name" validate:"required"`
	Fields []string `json:"fields" validate:"required,min=1,dive,required"`
}

type RegisterRequest struct {
	EventID  uint              `json:"eventId" validate:"required"`
	FormData map[string]string `json:"formData"`
}

type ScanRequest struct {
	QRCodeID  string `json:"qrCodeId" validate:"required"`
	EventName string `json:"eventName" validate:"required"`
	Action    string `json:"action" validate:"required"`
}

// GateScanMessage is the JSON body of a scan published to the gate queue. A
// plain-text body is read as the credential alone.
type GateScanMessage struct {
	QRCodeID string `json:"qrCodeId"`
	Action   string `json:"action,omitempty"`
}
